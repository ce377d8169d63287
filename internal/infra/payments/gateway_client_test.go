package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stayledger/internal/app/policies"
	"stayledger/internal/domain/shared/money"
)

func TestHTTPGatewaySettle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges" || r.Header.Get("Idempotency-Key") != "bk-1" {
			t.Errorf("unexpected request %s key=%q", r.URL.Path, r.Header.Get("Idempotency-Key"))
		}
		var body settleRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Amount == 1 {
			w.WriteHeader(http.StatusPaymentRequired)
			return
		}
		_ = json.NewEncoder(w).Encode(settleResponse{TransactionID: "tx-9", Status: "succeeded"})
	}))
	defer srv.Close()

	gw := &HTTPGateway{Client: srv.Client(), Endpoint: srv.URL}
	out, err := gw.Settle(context.Background(), policies.SettleRequest{BookingID: "b1", IdempotencyKey: "bk-1", Amount: money.Must(496035, "INR")})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if out.TransactionID != "tx-9" || out.Status != policies.SettlementSucceeded {
		t.Fatalf("settlement = %+v", out)
	}
	_, err = gw.Settle(context.Background(), policies.SettleRequest{BookingID: "b1", IdempotencyKey: "bk-1", Amount: money.Must(1, "INR")})
	if !errors.Is(err, policies.ErrPaymentDeclined) {
		t.Fatalf("expected decline, got %v", err)
	}
}

func TestHTTPGatewayRequiresEndpoint(t *testing.T) {
	gw := &HTTPGateway{Client: http.DefaultClient}
	if _, err := gw.Refund(context.Background(), policies.RefundRequest{}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestSandboxReplaysSettlementAndDeclines(t *testing.T) {
	sb := NewSandbox(0)
	req := policies.SettleRequest{BookingID: "b1", IdempotencyKey: "b1", Amount: money.Must(1000, "INR")}
	first, err := sb.Settle(context.Background(), req)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	second, _ := sb.Settle(context.Background(), req)
	if first.TransactionID == "" || first != second {
		t.Fatalf("settlements differ: %+v %+v", first, second)
	}
	declined, _ := sb.Settle(context.Background(), policies.SettleRequest{IdempotencyKey: "b2", Amount: money.Must(1000, "INR"), Method: DeclineMethod})
	if declined.Status != policies.SettlementDeclined {
		t.Fatalf("expected decline, got %+v", declined)
	}
}
