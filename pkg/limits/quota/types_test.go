package quota

import (
	"errors"
	"testing"
	"time"
)

func TestTierLimits(t *testing.T) {
	tests := []struct {
		tier Tier
		want int64
	}{
		{TierFree, 50},
		{TierPro, 500},
		{TierPremium, Unlimited},
		{Tier("platinum"), 50},
	}
	for _, tt := range tests {
		if got := tt.tier.Limit(); got != tt.want {
			t.Errorf("%s.Limit() = %d, want %d", tt.tier, got, tt.want)
		}
	}

	if _, err := ParseTier("platinum"); err == nil {
		t.Error("ParseTier(platinum) expected error")
	}
}

func TestActionCosts(t *testing.T) {
	tests := []struct {
		action Action
		want   int64
	}{
		{ActionAnalysis, 10},
		{ActionStorybook, 15},
		{ActionColoring, 8},
		{ActionChatbot, 2},
	}
	for _, tt := range tests {
		got, err := tt.action.Cost()
		if err != nil || got != tt.want {
			t.Errorf("%s.Cost() = %d, %v; want %d", tt.action, got, err, tt.want)
		}
	}

	if _, err := ParseAction("dance"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("ParseAction(dance) error = %v", err)
	}
}

func TestNextPeriodReset(t *testing.T) {
	tests := []struct {
		name    string
		resetAt time.Time
		anchor  int
		now     time.Time
		want    time.Time
	}{
		{
			name:    "future reset unchanged",
			resetAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "exact boundary advances one month",
			resetAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "several idle months skipped",
			resetAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "year rollover",
			resetAt: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2026, 12, 2, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "month end clamps",
			resetAt: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "clamped reset returns to anchor day",
			resetAt: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
			anchor:  31,
			now:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "leap year february",
			resetAt: time.Date(2028, 1, 30, 0, 0, 0, 0, time.UTC),
			anchor:  30,
			now:     time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "anchor carried across idle months",
			resetAt: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			anchor:  31,
			now:     time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextPeriodReset(tt.resetAt, tt.anchor, tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextPeriodReset() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextPeriodReset_NoDriftAcrossRollovers(t *testing.T) {
	resetAt := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	want := []time.Time{
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
	}
	for i, w := range want {
		resetAt = NextPeriodReset(resetAt, 31, resetAt)
		if !resetAt.Equal(w) {
			t.Fatalf("rollover %d = %v, want %v", i+1, resetAt, w)
		}
	}
}

func TestFirstPeriodReset(t *testing.T) {
	got := FirstPeriodReset(time.Date(2026, 12, 15, 9, 30, 0, 0, time.UTC))
	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("FirstPeriodReset() = %v, want %v", got, want)
	}
}
