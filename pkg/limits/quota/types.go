package quota

import (
	"fmt"
	"time"
)

// Tier is a subscription tier.
type Tier string

// Subscription tiers.
const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// Unlimited is the token limit of tiers without a cap.
const Unlimited int64 = -1

// tierLimits is the per-period token allowance of each tier.
var tierLimits = map[Tier]int64{
	TierFree:    50,
	TierPro:     500,
	TierPremium: Unlimited,
}

// Limit returns the tier's token allowance per period, or Unlimited.
// Unknown tiers get the free allowance.
func (t Tier) Limit() int64 {
	if limit, ok := tierLimits[t]; ok {
		return limit
	}
	return tierLimits[TierFree]
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierLimits[t]
	return ok
}

// ParseTier converts a string to a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q (valid: free, pro, premium)", s)
	}
	return t, nil
}

// Action is a metered operation.
type Action string

// Metered actions.
const (
	ActionAnalysis  Action = "analysis"
	ActionStorybook Action = "storybook"
	ActionColoring  Action = "coloring"
	ActionChatbot   Action = "chatbot"
)

var actionCosts = map[Action]int64{
	ActionAnalysis:  10,
	ActionStorybook: 15,
	ActionColoring:  8,
	ActionChatbot:   2,
}

// Cost returns the token cost of the action.
func (a Action) Cost() (int64, error) {
	cost, ok := actionCosts[a]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, string(a))
	}
	return cost, nil
}

// ParseAction converts a string to a known Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, err := a.Cost(); err != nil {
		return "", err
	}
	return a, nil
}

// Account is a user's quota state for the current period.
type Account struct {
	UserID        string    `json:"userId"`
	Tier          Tier      `json:"tier"`
	TokensUsed    int64     `json:"tokensUsed"`
	PeriodResetAt time.Time `json:"periodResetAt"`

	// PeriodAnchorDay is the day of month resets land on. Short months
	// clamp to their last day without moving the anchor.
	PeriodAnchorDay int `json:"periodAnchorDay"`

	CreatedAt time.Time `json:"createdAt"`
}

// TokenLimit returns the account's allowance per period.
func (a *Account) TokenLimit() int64 {
	return a.Tier.Limit()
}

// Remaining returns the tokens left this period, or Unlimited.
func (a *Account) Remaining() int64 {
	return remaining(a.Tier.Limit(), a.TokensUsed)
}

// Decision is the outcome of a reservation.
type Decision struct {
	// Allowed reports whether the cost was charged.
	Allowed bool `json:"allowed"`

	UserID string `json:"userId"`
	Tier   Tier   `json:"tier"`

	// Cost is the amount requested.
	Cost int64 `json:"cost"`

	// TokensUsed is the balance after the reservation. Unchanged when denied.
	TokensUsed int64 `json:"tokensUsed"`

	// TokenLimit is the tier allowance, or Unlimited.
	TokenLimit int64 `json:"tokenLimit"`

	// Remaining is TokenLimit-TokensUsed, or Unlimited.
	Remaining int64 `json:"remaining"`

	// WasReset is true for the one reservation that rolled the period over.
	WasReset bool `json:"wasReset"`

	PeriodResetAt time.Time `json:"periodResetAt"`
}

// Err returns nil when the reservation was allowed and an *ExceededError
// otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &ExceededError{Decision: d}
}

func remaining(limit, used int64) int64 {
	if limit == Unlimited {
		return Unlimited
	}
	if used >= limit {
		return 0
	}
	return limit - used
}

// evaluate applies rollover and the cost to a copy of acct. It is the
// single definition of reservation semantics; stores call it inside their
// atomic section.
func evaluate(acct Account, cost int64, now time.Time) (Account, Decision) {
	wasReset := false
	if !now.Before(acct.PeriodResetAt) {
		acct.TokensUsed = 0
		acct.PeriodResetAt = NextPeriodReset(acct.PeriodResetAt, acct.PeriodAnchorDay, now)
		wasReset = true
	}

	limit := acct.Tier.Limit()
	allowed := limit == Unlimited || acct.TokensUsed+cost <= limit
	if allowed {
		acct.TokensUsed += cost
	}

	return acct, Decision{
		Allowed:       allowed,
		UserID:        acct.UserID,
		Tier:          acct.Tier,
		Cost:          cost,
		TokensUsed:    acct.TokensUsed,
		TokenLimit:    limit,
		Remaining:     remaining(limit, acct.TokensUsed),
		WasReset:      wasReset,
		PeriodResetAt: acct.PeriodResetAt,
	}
}
