package providers

import (
	"context"
	"encoding/base64"
	"net/url"
	"strconv"
	"time"

	"github.com/ethanbaker/tollsync/pkg/tolls"
)

// networkB talks to the Southern Express Tolls API using HTTP basic authentication.
// Amounts on the wire are in cents.
type networkB struct {
	staticInfo
	username string
	password string
	client   *tolls.Client
	ledger   tolls.Ledger
}

func newNetworkB(cfg tolls.Config, deps adapterDeps) tolls.Adapter {
	b := &networkB{
		staticInfo: staticInfo{info: catalog[NetworkB]},
		username:   cfg.Credential("username"),
		password:   cfg.Credential("password"),
		ledger:     deps.ledger,
	}

	b.client = tolls.NewClient(tolls.ClientOptions{
		Provider:   NetworkB,
		BaseURL:    b.baseURL(cfg),
		Timeout:    cfg.TimeoutOrDefault(),
		HTTPClient: deps.httpClient,
		Limiter:    deps.limiter,
		Headers:    b.AuthHeaders,
	})

	return b
}

/** Wire types */

type networkBPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type networkBQuoteRequest struct {
	Route struct {
		Points []networkBPoint `json:"points"`
	} `json:"route"`
	VehicleClass string `json:"vehicle_class,omitempty"`
	AxleCount    int    `json:"axle_count,omitempty"`
}

type networkBQuoteResponse struct {
	Quote struct {
		TotalCents  int64   `json:"total_cents"`
		Currency    string  `json:"currency"`
		DistanceKm  float64 `json:"distance_km"`
		DurationMin float64 `json:"duration_min"`
		Charges     []struct {
			Facility  string  `json:"facility"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			CostCents int64   `json:"cost_cents"`
			Region    string  `json:"region"`
		} `json:"charges"`
	} `json:"quote"`
}

type networkBAccountResponse struct {
	Account struct {
		Number       string `json:"number"`
		DisplayName  string `json:"display_name"`
		State        string `json:"state"`
		BalanceCents int64  `json:"balance_cents"`
		Currency     string `json:"currency"`
		Devices      []struct {
			Serial string `json:"serial"`
		} `json:"devices"`
	} `json:"account"`
}

type networkBTollPage struct {
	Items []struct {
		TransactionID string `json:"transaction_id"`
		DeviceSerial  string `json:"device_serial"`
		Facility      string `json:"facility"`
		Region        string `json:"region"`
		AmountCents   int64  `json:"amount_cents"`
		Currency      string `json:"currency"`
		Timestamp     string `json:"timestamp"`
	} `json:"items"`
	NextCursor string `json:"next_cursor"`
}

/** Contract */

func (b *networkB) AuthHeaders() map[string]string {
	token := base64.StdEncoding.EncodeToString([]byte(b.username + ":" + b.password))
	return map[string]string{"Authorization": "Basic " + token}
}

func (b *networkB) TestConnection(ctx context.Context) (bool, error) {
	return tolls.CheckResult(b.client.Get(ctx, "/api/health", nil, nil))
}

func (b *networkB) ValidateCredentials(ctx context.Context) (bool, error) {
	var out struct {
		Username string `json:"username"`
	}
	if ok, err := tolls.CheckResult(b.client.Get(ctx, "/api/me", nil, &out)); !ok {
		return false, err
	}
	return out.Username != "", nil
}

func (b *networkB) CalculateTolls(ctx context.Context, req *tolls.TollRequest) (*tolls.TollQuote, error) {
	var body networkBQuoteRequest
	body.Route.Points = append(body.Route.Points, networkBPoint{req.Origin.Latitude, req.Origin.Longitude})
	for _, wp := range req.Waypoints {
		body.Route.Points = append(body.Route.Points, networkBPoint{wp.Latitude, wp.Longitude})
	}
	body.Route.Points = append(body.Route.Points, networkBPoint{req.Destination.Latitude, req.Destination.Longitude})
	body.VehicleClass = req.VehicleClass
	body.AxleCount = req.Axles

	var out networkBQuoteResponse
	if err := b.client.Post(ctx, "/api/quotes", body, &out); err != nil {
		return nil, err
	}

	quote := &tolls.TollQuote{
		TotalCost:  centsToAmount(out.Quote.TotalCents),
		Currency:   currencyOrDefault(out.Quote.Currency),
		TollPoints: make([]tolls.TollPoint, 0, len(out.Quote.Charges)),
		Route: tolls.Route{
			DistanceKm:      out.Quote.DistanceKm,
			DurationMinutes: out.Quote.DurationMin,
		},
	}
	for _, c := range out.Quote.Charges {
		quote.TollPoints = append(quote.TollPoints, tolls.TollPoint{
			Name:     c.Facility,
			Location: tolls.Location{Latitude: c.Latitude, Longitude: c.Longitude},
			Cost:     centsToAmount(c.CostCents),
			Region:   c.Region,
		})
	}

	return quote, nil
}

func (b *networkB) AccountInfo(ctx context.Context, accountNumber string) (*tolls.AccountInfo, error) {
	var out networkBAccountResponse
	if err := b.client.Get(ctx, "/api/accounts/"+url.PathEscape(accountNumber), nil, &out); err != nil {
		return nil, err
	}

	info := &tolls.AccountInfo{
		AccountNumber: out.Account.Number,
		AccountName:   out.Account.DisplayName,
		Status:        out.Account.State,
		Balance:       centsToAmount(out.Account.BalanceCents),
		Currency:      currencyOrDefault(out.Account.Currency),
	}
	for _, d := range out.Account.Devices {
		info.Transponders = append(info.Transponders, d.Serial)
	}

	return info, nil
}

func (b *networkB) Transactions(ctx context.Context, accountNumber string, start, end time.Time, limit int) ([]tolls.Transaction, error) {
	var txs []tolls.Transaction
	path := "/api/accounts/" + url.PathEscape(accountNumber) + "/tolls"
	cursor := ""

	for range maxPages {
		query := url.Values{
			"start_date": {start.UTC().Format(time.DateOnly)},
			"end_date":   {end.UTC().Format(time.DateOnly)},
			"limit":      {strconv.Itoa(pageSize(limit, len(txs)))},
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var out networkBTollPage
		if err := b.client.Get(ctx, path, query, &out); err != nil {
			return nil, err
		}

		for _, item := range out.Items {
			txs = append(txs, tolls.Transaction{
				ProviderID:    NetworkB,
				AccountNumber: accountNumber,
				ExternalID:    item.TransactionID,
				Transponder:   item.DeviceSerial,
				Plaza:         item.Facility,
				Region:        item.Region,
				Amount:        centsToAmount(item.AmountCents),
				Currency:      currencyOrDefault(item.Currency),
				OccurredAt:    parseTime(item.Timestamp),
			})
		}

		cursor = out.NextCursor
		if limitReached(limit, len(txs)) || cursor == "" {
			break
		}
	}

	return truncate(txs, limit), nil
}

func (b *networkB) SyncAccountData(ctx context.Context, accountNumber string) (*tolls.SyncResult, error) {
	started := time.Now()
	txs, err := b.Transactions(ctx, accountNumber, started.Add(-tolls.DefaultSyncWindow), started, 0)
	if err != nil {
		return nil, err
	}
	return tolls.MirrorTransactions(ctx, b.ledger, txs, started), nil
}

func centsToAmount(cents int64) float64 {
	return float64(cents) / 100
}
