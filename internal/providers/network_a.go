package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethanbaker/tollsync/pkg/tolls"
)

// networkA talks to the Atlantic Toll Network API, authenticated with an API key
type networkA struct {
	staticInfo
	apiKey string
	client *tolls.Client
	ledger tolls.Ledger
}

func newNetworkA(cfg tolls.Config, deps adapterDeps) tolls.Adapter {
	a := &networkA{
		staticInfo: staticInfo{info: catalog[NetworkA]},
		apiKey:     cfg.Credential("api_key"),
		ledger:     deps.ledger,
	}

	a.client = tolls.NewClient(tolls.ClientOptions{
		Provider:   NetworkA,
		BaseURL:    a.baseURL(cfg),
		Timeout:    cfg.TimeoutOrDefault(),
		HTTPClient: deps.httpClient,
		Limiter:    deps.limiter,
		Headers:    a.AuthHeaders,
	})

	return a
}

/** Wire types */

type networkAPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type networkAQuoteRequest struct {
	Origin      networkAPoint   `json:"origin"`
	Destination networkAPoint   `json:"destination"`
	Waypoints   []networkAPoint `json:"waypoints,omitempty"`
	Vehicle     struct {
		Class    string  `json:"class,omitempty"`
		Axles    int     `json:"axles,omitempty"`
		WeightKg float64 `json:"weight_kg,omitempty"`
	} `json:"vehicle"`
	DepartAt string `json:"depart_at,omitempty"`
}

type networkAQuoteResponse struct {
	Total struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"total"`
	Plazas []struct {
		Name   string  `json:"name"`
		Lat    float64 `json:"lat"`
		Lng    float64 `json:"lng"`
		Amount float64 `json:"amount"`
		State  string  `json:"state"`
	} `json:"plazas"`
	Route struct {
		DistanceM float64 `json:"distance_m"`
		DurationS float64 `json:"duration_s"`
		Polyline  string  `json:"polyline"`
	} `json:"route"`
}

type networkAAccount struct {
	AccountNumber string   `json:"account_number"`
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	Balance       float64  `json:"balance"`
	Currency      string   `json:"currency"`
	Tags          []string `json:"tags"`
	UpdatedAt     string   `json:"updated_at"`
}

type networkATransactionPage struct {
	Data []struct {
		ID       string  `json:"id"`
		Tag      string  `json:"tag"`
		Plaza    string  `json:"plaza"`
		State    string  `json:"state"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		PostedAt string  `json:"posted_at"`
	} `json:"data"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

/** Contract */

func (a *networkA) AuthHeaders() map[string]string {
	return map[string]string{"X-API-Key": a.apiKey}
}

func (a *networkA) TestConnection(ctx context.Context) (bool, error) {
	return tolls.CheckResult(a.client.Get(ctx, "/v1/status", nil, nil))
}

func (a *networkA) ValidateCredentials(ctx context.Context) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	if ok, err := tolls.CheckResult(a.client.Get(ctx, "/v1/auth/verify", nil, &out)); !ok {
		return false, err
	}
	return out.Valid, nil
}

func (a *networkA) CalculateTolls(ctx context.Context, req *tolls.TollRequest) (*tolls.TollQuote, error) {
	body := networkAQuoteRequest{
		Origin:      networkAPoint{Lat: req.Origin.Latitude, Lng: req.Origin.Longitude},
		Destination: networkAPoint{Lat: req.Destination.Latitude, Lng: req.Destination.Longitude},
	}
	for _, wp := range req.Waypoints {
		body.Waypoints = append(body.Waypoints, networkAPoint{Lat: wp.Latitude, Lng: wp.Longitude})
	}
	body.Vehicle.Class = req.VehicleClass
	body.Vehicle.Axles = req.Axles
	body.Vehicle.WeightKg = req.GrossWeightKg
	if req.DepartureAt != nil {
		body.DepartAt = req.DepartureAt.UTC().Format(time.RFC3339)
	}

	var out networkAQuoteResponse
	if err := a.client.Post(ctx, "/v1/tolls/calculate", body, &out); err != nil {
		return nil, err
	}

	quote := &tolls.TollQuote{
		TotalCost:  out.Total.Amount,
		Currency:   currencyOrDefault(out.Total.Currency),
		TollPoints: make([]tolls.TollPoint, 0, len(out.Plazas)),
		Route: tolls.Route{
			DistanceKm:      out.Route.DistanceM / 1000,
			DurationMinutes: out.Route.DurationS / 60,
			Polyline:        out.Route.Polyline,
		},
	}
	for _, p := range out.Plazas {
		quote.TollPoints = append(quote.TollPoints, tolls.TollPoint{
			Name:     p.Name,
			Location: tolls.Location{Latitude: p.Lat, Longitude: p.Lng},
			Cost:     p.Amount,
			Region:   p.State,
		})
	}

	return quote, nil
}

func (a *networkA) AccountInfo(ctx context.Context, accountNumber string) (*tolls.AccountInfo, error) {
	var out networkAAccount
	if err := a.client.Get(ctx, "/v1/accounts/"+url.PathEscape(accountNumber), nil, &out); err != nil {
		return nil, err
	}

	return &tolls.AccountInfo{
		AccountNumber: out.AccountNumber,
		AccountName:   out.Name,
		Status:        out.Status,
		Balance:       out.Balance,
		Currency:      currencyOrDefault(out.Currency),
		Transponders:  out.Tags,
		UpdatedAt:     parseTimePtr(out.UpdatedAt),
	}, nil
}

func (a *networkA) Transactions(ctx context.Context, accountNumber string, start, end time.Time, limit int) ([]tolls.Transaction, error) {
	var txs []tolls.Transaction
	path := "/v1/accounts/" + url.PathEscape(accountNumber) + "/transactions"

	for page := 1; page <= maxPages; page++ {
		query := url.Values{
			"from":     {start.UTC().Format(time.RFC3339)},
			"to":       {end.UTC().Format(time.RFC3339)},
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(pageSize(limit, len(txs)))},
		}

		var out networkATransactionPage
		if err := a.client.Do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
			return nil, err
		}

		for _, d := range out.Data {
			txs = append(txs, tolls.Transaction{
				ProviderID:    NetworkA,
				AccountNumber: accountNumber,
				ExternalID:    d.ID,
				Transponder:   d.Tag,
				Plaza:         d.Plaza,
				Region:        d.State,
				Amount:        d.Amount,
				Currency:      currencyOrDefault(d.Currency),
				OccurredAt:    parseTime(d.PostedAt),
			})
		}

		if limitReached(limit, len(txs)) || len(out.Data) == 0 || page >= out.TotalPages {
			break
		}
	}

	return truncate(txs, limit), nil
}

func (a *networkA) SyncAccountData(ctx context.Context, accountNumber string) (*tolls.SyncResult, error) {
	started := time.Now()
	txs, err := a.Transactions(ctx, accountNumber, started.Add(-tolls.DefaultSyncWindow), started, 0)
	if err != nil {
		return nil, err
	}
	return tolls.MirrorTransactions(ctx, a.ledger, txs, started), nil
}
