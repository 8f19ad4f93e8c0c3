package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"CryptoPilot/internal/model"
)

// RESTFeed fetches market data from the exchange's public endpoints.
type RESTFeed struct {
	baseURL string
	client  *http.Client
}

func NewRESTFeed(baseURL string) *RESTFeed {
	return &RESTFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *RESTFeed) Name() string { return "rest" }

type klineRow struct {
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

func (f *RESTFeed) History(ctx context.Context, symbol string, days int) ([]model.PricePoint, error) {
	endpoint := fmt.Sprintf("%s/api/v1/klines/daily?symbol=%s&limit=%d", f.baseURL, symbol, days)

	var rows []klineRow
	if err := f.getJSON(ctx, endpoint, &rows); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}

	points := make([]model.PricePoint, 0, len(rows))
	for _, row := range rows {
		if row.Close <= 0 {
			continue
		}
		points = append(points, model.PricePoint{
			Time:  time.Unix(row.Timestamp, 0).UTC(),
			Price: row.Close,
		})
	}
	return points, nil
}

func (f *RESTFeed) Price(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/ticker?symbol=%s", f.baseURL, symbol)

	var quote struct {
		Symbol string  `json:"symbol"`
		Last   float64 `json:"last_price"`
	}
	if err := f.getJSON(ctx, endpoint, &quote); err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}
	if quote.Last <= 0 {
		return 0, fmt.Errorf("feed returned non-positive price for %s", symbol)
	}
	return quote.Last, nil
}

func (f *RESTFeed) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
