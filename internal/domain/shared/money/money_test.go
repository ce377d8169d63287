package money

import "testing"

func TestRoundRateHalfUp(t *testing.T) {
	cases := []struct {
		amount int64
		rate   BasisPoints
		want   int64
	}{
		{amount: 345000, rate: 1500, want: 51750},
		{amount: 365000, rate: 1800, want: 65700},
		{amount: 365000, rate: 290, want: 10585},
		{amount: 5, rate: 1000, want: 1},   // 0.5 rounds up
		{amount: 4, rate: 1000, want: 0},   // 0.4 rounds down
		{amount: -5, rate: 1000, want: -1}, // symmetric for negatives
		{amount: 0, rate: 1800, want: 0},
	}
	for _, tc := range cases {
		if got := RoundRate(tc.amount, tc.rate); got != tc.want {
			t.Fatalf("RoundRate(%d, %d) = %d, want %d", tc.amount, tc.rate, got, tc.want)
		}
	}
}

func TestPercent(t *testing.T) {
	m := Must(496035, "INR")
	if got := m.Percent(50); got.Amount != 248018 {
		t.Fatalf("50%% of %s = %d, want 248018", m, got.Amount)
	}
}

func TestParseRate(t *testing.T) {
	got, err := ParseRate("0.15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1500 {
		t.Fatalf("ParseRate(0.15) = %d, want 1500", got)
	}
	if _, err := ParseRate("1.2"); err == nil {
		t.Fatal("expected error for rate >= 1")
	}
}

func TestDecimal(t *testing.T) {
	if got := Must(496035, "inr").String(); got != "4960.35 INR" {
		t.Fatalf("unexpected rendering %q", got)
	}
	if got := Must(-5, "INR").Decimal(); got != "-0.05" {
		t.Fatalf("unexpected negative rendering %q", got)
	}
}

func TestAddCurrencyMismatch(t *testing.T) {
	if _, err := Must(1, "INR").Add(Must(1, "USD")); err != ErrCurrencyMismatch {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
}
