package providers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethanbaker/tollsync/pkg/tolls"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// networkD talks to the Pacific Toll Connect API. Bearer tokens are obtained through
// the OAuth2 client credentials grant and attached by the OAuth2 transport, so
// AuthHeaders only carries the non-secret client id.
type networkD struct {
	staticInfo
	clientID string
	client   *tolls.Client
	ledger   tolls.Ledger
}

func newNetworkD(cfg tolls.Config, deps adapterDeps) tolls.Adapter {
	d := &networkD{
		staticInfo: staticInfo{info: catalog[NetworkD]},
		clientID:   cfg.Credential("client_id"),
		ledger:     deps.ledger,
	}

	base := strings.TrimRight(d.baseURL(cfg), "/")
	tokenURL := cfg.Credential("token_url")
	if tokenURL == "" {
		tokenURL = base + "/oauth2/token"
	}

	oauthCfg := &clientcredentials.Config{
		ClientID:     d.clientID,
		ClientSecret: cfg.Credential("client_secret"),
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if scope := cfg.Credential("scope"); scope != "" {
		oauthCfg.Scopes = strings.Fields(scope)
	}

	// Token requests use a client bounded by the same timeout as API calls
	tokenClient := deps.httpClient
	if tokenClient == nil {
		tokenClient = &http.Client{Timeout: cfg.TimeoutOrDefault()}
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)

	d.client = tolls.NewClient(tolls.ClientOptions{
		Provider:   NetworkD,
		BaseURL:    base,
		Timeout:    cfg.TimeoutOrDefault(),
		HTTPClient: oauthCfg.Client(tokenCtx),
		Limiter:    deps.limiter,
		Headers:    d.AuthHeaders,
	})

	return d
}

/** Wire types */

type networkDStop struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type networkDEstimateRequest struct {
	From     networkDStop   `json:"from"`
	To       networkDStop   `json:"to"`
	Via      []networkDStop `json:"via,omitempty"`
	Class    string         `json:"class,omitempty"`
	Axles    int            `json:"axles,omitempty"`
	WeightKg float64        `json:"weight_kg,omitempty"`
}

type networkDEstimateResponse struct {
	Estimate struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"estimate"`
	Segments []struct {
		Facility  string  `json:"facility"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Amount    float64 `json:"amount"`
		Region    string  `json:"region"`
	} `json:"segments"`
	Summary struct {
		DistanceKm float64 `json:"distance_km"`
		DurationS  float64 `json:"duration_s"`
	} `json:"summary"`
}

type networkDAccount struct {
	ID           string   `json:"id"`
	Nickname     string   `json:"nickname"`
	Status       string   `json:"status"`
	Balance      float64  `json:"balance"`
	Currency     string   `json:"currency"`
	Transponders []string `json:"transponders"`
	LastActivity string   `json:"last_activity"`
}

type networkDChargePage struct {
	Charges []struct {
		ChargeID    string  `json:"charge_id"`
		Transponder string  `json:"transponder"`
		Facility    string  `json:"facility"`
		Region      string  `json:"region"`
		Amount      float64 `json:"amount"`
		Currency    string  `json:"currency"`
		ChargedAt   string  `json:"charged_at"`
	} `json:"charges"`
	HasMore bool `json:"has_more"`
}

/** Contract */

func (d *networkD) AuthHeaders() map[string]string {
	return map[string]string{"X-Client-Id": d.clientID}
}

func (d *networkD) TestConnection(ctx context.Context) (bool, error) {
	return checkOAuth(d.client.Get(ctx, "/v1/ping", nil, nil))
}

func (d *networkD) ValidateCredentials(ctx context.Context) (bool, error) {
	var out struct {
		ClientID string `json:"client_id"`
	}
	if ok, err := checkOAuth(d.client.Get(ctx, "/v1/clients/self", nil, &out)); !ok {
		return false, err
	}
	return out.ClientID == d.clientID, nil
}

func (d *networkD) CalculateTolls(ctx context.Context, req *tolls.TollRequest) (*tolls.TollQuote, error) {
	body := networkDEstimateRequest{
		From:     networkDStop{Latitude: req.Origin.Latitude, Longitude: req.Origin.Longitude},
		To:       networkDStop{Latitude: req.Destination.Latitude, Longitude: req.Destination.Longitude},
		Class:    req.VehicleClass,
		Axles:    req.Axles,
		WeightKg: req.GrossWeightKg,
	}
	for _, wp := range req.Waypoints {
		body.Via = append(body.Via, networkDStop{Latitude: wp.Latitude, Longitude: wp.Longitude})
	}

	var out networkDEstimateResponse
	if err := d.client.Post(ctx, "/v1/estimates", body, &out); err != nil {
		return nil, err
	}

	quote := &tolls.TollQuote{
		TotalCost:  out.Estimate.Amount,
		Currency:   currencyOrDefault(out.Estimate.Currency),
		TollPoints: make([]tolls.TollPoint, 0, len(out.Segments)),
		Route: tolls.Route{
			DistanceKm:      out.Summary.DistanceKm,
			DurationMinutes: out.Summary.DurationS / 60,
		},
	}
	for _, s := range out.Segments {
		quote.TollPoints = append(quote.TollPoints, tolls.TollPoint{
			Name:     s.Facility,
			Location: tolls.Location{Latitude: s.Latitude, Longitude: s.Longitude},
			Cost:     s.Amount,
			Region:   s.Region,
		})
	}

	return quote, nil
}

func (d *networkD) AccountInfo(ctx context.Context, accountNumber string) (*tolls.AccountInfo, error) {
	var out networkDAccount
	if err := d.client.Get(ctx, "/v1/accounts/"+url.PathEscape(accountNumber), nil, &out); err != nil {
		return nil, err
	}

	return &tolls.AccountInfo{
		AccountNumber: out.ID,
		AccountName:   out.Nickname,
		Status:        out.Status,
		Balance:       out.Balance,
		Currency:      currencyOrDefault(out.Currency),
		Transponders:  out.Transponders,
		UpdatedAt:     parseTimePtr(out.LastActivity),
	}, nil
}

func (d *networkD) Transactions(ctx context.Context, accountNumber string, start, end time.Time, limit int) ([]tolls.Transaction, error) {
	var txs []tolls.Transaction
	path := "/v1/accounts/" + url.PathEscape(accountNumber) + "/charges"
	after := ""

	for range maxPages {
		query := url.Values{
			"from":      {start.UTC().Format(time.RFC3339)},
			"to":        {end.UTC().Format(time.RFC3339)},
			"page_size": {strconv.Itoa(pageSize(limit, len(txs)))},
		}
		if after != "" {
			query.Set("starting_after", after)
		}

		var out networkDChargePage
		if err := d.client.Get(ctx, path, query, &out); err != nil {
			return nil, err
		}

		for _, c := range out.Charges {
			txs = append(txs, tolls.Transaction{
				ProviderID:    NetworkD,
				AccountNumber: accountNumber,
				ExternalID:    c.ChargeID,
				Transponder:   c.Transponder,
				Plaza:         c.Facility,
				Region:        c.Region,
				Amount:        c.Amount,
				Currency:      currencyOrDefault(c.Currency),
				OccurredAt:    parseTime(c.ChargedAt),
			})
			after = c.ChargeID
		}

		if limitReached(limit, len(txs)) || !out.HasMore || len(out.Charges) == 0 {
			break
		}
	}

	return truncate(txs, limit), nil
}

func (d *networkD) SyncAccountData(ctx context.Context, accountNumber string) (*tolls.SyncResult, error) {
	started := time.Now()
	txs, err := d.Transactions(ctx, accountNumber, started.Add(-tolls.DefaultSyncWindow), started, 0)
	if err != nil {
		return nil, err
	}
	return tolls.MirrorTransactions(ctx, d.ledger, txs, started), nil
}

// checkOAuth treats a rejected token request like a rejected API call
func checkOAuth(err error) (bool, error) {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return false, nil
		}
	}
	return tolls.CheckResult(err)
}
