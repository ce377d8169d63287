package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"stayledger/internal/app/policies"
)

// HTTPGateway talks to a payment collaborator over JSON/HTTP.
type HTTPGateway struct {
	Client   *http.Client
	Endpoint string
	APIKey   string
	Logger   *slog.Logger
}

type settleRequest struct {
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Method    string `json:"method,omitempty"`
}

type settleResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type refundRequest struct {
	BookingID     string `json:"booking_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type refundResponse struct {
	Reference string `json:"reference"`
}

func (g *HTTPGateway) Settle(ctx context.Context, req policies.SettleRequest) (policies.Settlement, error) {
	var resp settleResponse
	payload := settleRequest{
		BookingID: req.BookingID,
		Amount:    req.Amount.Amount,
		Currency:  req.Amount.Currency,
		Method:    req.Method,
	}
	if err := g.post(ctx, "/charges", req.IdempotencyKey, payload, &resp); err != nil {
		g.logError("payment settle failed", req.BookingID, err)
		return policies.Settlement{}, err
	}
	status := policies.SettlementDeclined
	if strings.EqualFold(resp.Status, string(policies.SettlementSucceeded)) {
		status = policies.SettlementSucceeded
	}
	return policies.Settlement{TransactionID: resp.TransactionID, Status: status}, nil
}

func (g *HTTPGateway) Refund(ctx context.Context, req policies.RefundRequest) (policies.RefundResult, error) {
	var resp refundResponse
	payload := refundRequest{
		BookingID:     req.BookingID,
		TransactionID: req.TransactionID,
		Amount:        req.Amount.Amount,
		Currency:      req.Amount.Currency,
	}
	if err := g.post(ctx, "/refunds", req.RefundID, payload, &resp); err != nil {
		g.logError("payment refund failed", req.BookingID, err)
		return policies.RefundResult{}, err
	}
	return policies.RefundResult{Reference: resp.Reference}, nil
}

func (g *HTTPGateway) post(ctx context.Context, path, idempotencyKey string, payload, out any) error {
	if g == nil || g.Client == nil {
		return errors.New("payments: http client not configured")
	}
	if g.Endpoint == "" {
		return errors.New("payments: gateway endpoint not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.Endpoint, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		request.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if g.APIKey != "" {
		request.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return policies.ErrPaymentDeclined
	}
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payments: gateway returned status %d: %s", resp.StatusCode, string(snippet))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *HTTPGateway) logError(msg, bookingID string, err error) {
	if g.Logger == nil {
		return
	}
	g.Logger.Error(msg, "booking_id", bookingID, "err", err)
}

var _ policies.PaymentGateway = (*HTTPGateway)(nil)
