package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	base := errors.New("hold failed")
	err := fmt.Errorf("create: %w", New(KindResourceConflict, "booking.create", base))
	if !errors.Is(err, ResourceConflict) {
		t.Fatal("expected resource conflict match")
	}
	if errors.Is(err, UpstreamFailure) {
		t.Fatal("kinds must not cross-match")
	}
	if !errors.Is(err, base) {
		t.Fatal("cause must stay reachable")
	}
	kind, ok := KindOf(err)
	if !ok || kind != KindResourceConflict {
		t.Fatalf("KindOf = %s, %v", kind, ok)
	}
}

func TestTransitionCarriesStates(t *testing.T) {
	err := Transition("booking.accept", "cancelled", "confirmed", nil)
	var e *Error
	if !errors.As(err, &e) || e.From != "cancelled" || e.To != "confirmed" {
		t.Fatalf("unexpected error %+v", e)
	}
	if err.Error() != "booking.accept: invalid_transition" {
		t.Fatalf("message = %q", err.Error())
	}
}
