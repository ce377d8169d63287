package refunds

import (
	"testing"
	"time"

	"stayledger/internal/domain/shared/money"
)

var checkIn = time.Date(2026, 6, 10, 14, 0, 0, 0, time.UTC)

func TestComputePolicyTable(t *testing.T) {
	total := money.Must(496035, "INR")
	cases := []struct {
		policy  Policy
		hours   float64
		pct     int
		allowed bool
	}{
		{Flexible, 25, 100, true},
		{Flexible, 24, 0, true},
		{Moderate, 121, 100, true},
		{Moderate, 120, 50, true},
		{Moderate, 72, 50, true},
		{Moderate, 24, 0, true},
		{Strict, 169, 50, true},
		{Strict, 168, 0, true},
		{SuperStrict, 500, 0, true},
		{SuperStrict, 168, 0, false},
	}
	for _, tc := range cases {
		now := checkIn.Add(-time.Duration(tc.hours * float64(time.Hour)))
		q, err := Compute(tc.policy, now, checkIn, total)
		if err != nil {
			t.Fatalf("%s/%v: %v", tc.policy, tc.hours, err)
		}
		if q.Percentage != tc.pct || q.Allowed != tc.allowed {
			t.Errorf("%s at %vh = %d%% allowed=%v, want %d%% allowed=%v", tc.policy, tc.hours, q.Percentage, q.Allowed, tc.pct, tc.allowed)
		}
	}
}

func TestModerateThreeDaysOutRefundsHalf(t *testing.T) {
	q, err := Compute(Moderate, checkIn.Add(-72*time.Hour), checkIn, money.Must(496035, "INR"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if q.Percentage != 50 || q.Amount.Amount != 248018 {
		t.Fatalf("quote = %d%% %s", q.Percentage, q.Amount)
	}
}

func TestRefundIsMonotonic(t *testing.T) {
	total := money.Must(100000, "INR")
	for _, p := range []Policy{Flexible, Moderate, Strict, SuperStrict} {
		prev := 101
		for h := 400; h >= -24; h-- {
			q, err := Compute(p, checkIn.Add(-time.Duration(h)*time.Hour), checkIn, total)
			if err != nil {
				t.Fatalf("%s: %v", p, err)
			}
			if q.Percentage > prev {
				t.Fatalf("%s: refund rose from %d to %d at %dh", p, prev, q.Percentage, h)
			}
			prev = q.Percentage
		}
	}
}

func TestApplyReasons(t *testing.T) {
	total := money.Must(100000, "INR")
	deposit := money.Must(20000, "INR")
	quote := Quote{Percentage: 0, Amount: money.Zero("INR")}
	for _, r := range []Reason{ReasonHostCancel, ReasonHostReject, ReasonPendingCancel, ReasonSystem} {
		d, err := Apply(r, quote, total, deposit)
		if err != nil {
			t.Fatalf("%s: %v", r, err)
		}
		if d.Percentage != 100 || d.Amount != total || d.Type != TypeFull {
			t.Errorf("%s => %+v, want full refund", r, d)
		}
	}
	d, err := Apply(ReasonSecurityDepositOnly, quote, total, deposit)
	if err != nil || d.Amount != deposit || d.Type != TypeSecurityDepositOnly {
		t.Fatalf("deposit refund = %+v, %v", d, err)
	}
	d, err = Apply(ReasonGuestRequest, Quote{Percentage: 50, Amount: total.Percent(50)}, total, deposit)
	if err != nil || d.Amount.Amount != 50000 || d.Type != TypePartial {
		t.Fatalf("guest refund = %+v, %v", d, err)
	}
}
