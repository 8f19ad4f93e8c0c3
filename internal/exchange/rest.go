package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CryptoPilot/internal/model"
)

// REST talks to a live spot exchange over its signed HTTP API. Request
// parameters are signed with HMAC-SHA256 over the sorted query string.
type REST struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
	now       func() time.Time
}

var _ Client = (*REST)(nil)

func NewREST(baseURL, apiKey, apiSecret string) *REST {
	return &REST{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

func (r *REST) Name() string { return "rest" }

// GetTicker fetches the last traded price from the public ticker endpoint.
func (r *REST) GetTicker(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/ticker?symbol=%s", r.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, &TransportError{Op: "GET /api/v1/ticker", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ticker %s: status %d", symbol, resp.StatusCode)
	}

	var quote struct {
		Symbol string  `json:"symbol"`
		Last   float64 `json:"last_price"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&quote); err != nil {
		return 0, fmt.Errorf("decode ticker: %w", err)
	}
	if quote.Last <= 0 {
		return 0, fmt.Errorf("ticker %s: non-positive price", symbol)
	}
	return quote.Last, nil
}

// GetBalances fetches the account's free holdings from the signed funds
// endpoint. Zero balances are omitted.
func (r *REST) GetBalances(ctx context.Context) (map[string]float64, error) {
	body, err := r.signedRequest(ctx, http.MethodGet, "/api/v1/funds", url.Values{})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Symbol string  `json:"symbol"`
		Free   float64 `json:"free"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &TransportError{Op: "decode funds response", Err: err}
	}
	balances := make(map[string]float64, len(rows))
	for _, row := range rows {
		if row.Free > 0 {
			balances[row.Symbol] = row.Free
		}
	}
	return balances, nil
}

// restOrderResponse is the expected JSON shape of the order endpoint.
type restOrderResponse struct {
	OrderID    string  `json:"order_id"`
	Status     string  `json:"status"`
	FilledQty  float64 `json:"filled_quantity"`
	AvgPrice   float64 `json:"average_price"`
	Fee        float64 `json:"fee"`
	RejectInfo string  `json:"reject_reason"`
}

func (r *REST) PlaceOrder(ctx context.Context, order model.Order) (Fill, error) {
	params := url.Values{}
	params.Set("client_order_id", order.ID)
	params.Set("symbol", order.Symbol)
	params.Set("side", string(order.Side))
	params.Set("type", "market")
	params.Set("quantity", strconv.FormatFloat(order.Quantity, 'f', -1, 64))

	body, err := r.signedRequest(ctx, http.MethodPost, "/api/v1/order", params)
	if err != nil {
		return Fill{}, err
	}

	var resp restOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Fill{}, &TransportError{Op: "decode order response", Err: err}
	}
	if resp.Status != "filled" {
		reason := resp.RejectInfo
		if reason == "" {
			reason = "status " + resp.Status
		}
		return Fill{}, &RejectError{OrderID: order.ID, Reason: reason}
	}

	return Fill{
		OrderID:  order.ID,
		Symbol:   order.Symbol,
		Side:     order.Side,
		Quantity: resp.FilledQty,
		Price:    resp.AvgPrice,
		Fee:      resp.Fee,
	}, nil
}

func (r *REST) CancelOrder(ctx context.Context, orderID string) error {
	params := url.Values{}
	params.Set("client_order_id", orderID)
	_, err := r.signedRequest(ctx, http.MethodDelete, "/api/v1/order", params)
	return err
}

// signedRequest appends a timestamp, signs the encoded query, and executes
// the call. 5xx and connection failures surface as TransportError; 4xx is
// a terminal rejection.
func (r *REST) signedRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(r.now().UnixMilli(), 10))
	encoded := params.Encode() // sorted by key
	params.Set("signature", r.sign(encoded))

	endpoint := r.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}
	switch {
	case resp.StatusCode >= 500:
		return nil, &TransportError{Op: method + " " + path,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	case resp.StatusCode >= 400:
		return nil, &RejectError{Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	return body, nil
}

func (r *REST) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(r.apiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
