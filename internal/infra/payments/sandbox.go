package payments

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stayledger/internal/app/policies"
)

// DeclineMethod makes the sandbox decline a charge.
const DeclineMethod = "sandbox_decline"

// Sandbox is an in-process gateway for local runs and tests. It settles every
// charge unless the payment method asks for a decline, and replays the same
// settlement for a repeated idempotency key.
type Sandbox struct {
	Latency time.Duration

	mu       sync.Mutex
	settled  map[string]policies.Settlement
	refunded map[string]policies.RefundResult
}

func NewSandbox(latency time.Duration) *Sandbox {
	return &Sandbox{
		Latency:  latency,
		settled:  make(map[string]policies.Settlement),
		refunded: make(map[string]policies.RefundResult),
	}
}

func (s *Sandbox) Settle(ctx context.Context, req policies.SettleRequest) (policies.Settlement, error) {
	if err := s.wait(ctx); err != nil {
		return policies.Settlement{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.settled[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return prev, nil
	}
	out := policies.Settlement{TransactionID: "sbx_" + uuid.NewString(), Status: policies.SettlementSucceeded}
	if strings.EqualFold(req.Method, DeclineMethod) || req.Amount.Amount <= 0 {
		out = policies.Settlement{Status: policies.SettlementDeclined}
	}
	if req.IdempotencyKey != "" {
		s.settled[req.IdempotencyKey] = out
	}
	return out, nil
}

func (s *Sandbox) Refund(ctx context.Context, req policies.RefundRequest) (policies.RefundResult, error) {
	if err := s.wait(ctx); err != nil {
		return policies.RefundResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.refunded[req.RefundID]; ok {
		return prev, nil
	}
	out := policies.RefundResult{Reference: "sbx_rf_" + uuid.NewString()}
	s.refunded[req.RefundID] = out
	return out, nil
}

func (s *Sandbox) wait(ctx context.Context) error {
	if s.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ policies.PaymentGateway = (*Sandbox)(nil)
