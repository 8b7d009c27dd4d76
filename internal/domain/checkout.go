package domain

import "time"

// CheckoutStep is the fixed checkout sequence. Steps only ever advance
// forward in declaration order; completed is terminal.
type CheckoutStep string

const (
	StepShipping  CheckoutStep = "shipping"
	StepPayment   CheckoutStep = "payment"
	StepCompleted CheckoutStep = "completed"
)

var stepOrder = map[CheckoutStep]int{
	StepShipping:  0,
	StepPayment:   1,
	StepCompleted: 2,
}

// ParseStep maps a request path segment to a step.
func ParseStep(s string) (CheckoutStep, bool) {
	step := CheckoutStep(s)
	_, ok := stepOrder[step]
	return step, ok
}

func (s CheckoutStep) IsTerminal() bool {
	return s == StepCompleted
}

func (s CheckoutStep) String() string {
	return string(s)
}

// Next returns the step immediately following s, or false for the terminal
// step.
func (s CheckoutStep) Next() (CheckoutStep, bool) {
	switch s {
	case StepShipping:
		return StepPayment, true
	case StepPayment:
		return StepCompleted, true
	default:
		return "", false
	}
}

// CanAdvanceTo reports whether target is the single legal forward transition
// from s. Backward moves, skips and repeats of the terminal step are all
// rejected.
func CanAdvanceTo(from, target CheckoutStep) bool {
	next, ok := from.Next()
	return ok && next == target
}

// SessionLifetime is how long a checkout session stays valid without a
// successful step advance.
const SessionLifetime = 30 * time.Minute

// CheckoutSession tracks a shopper's progress through checkout. The cart
// snapshot is frozen at creation time and does not follow later cart edits.
type CheckoutSession struct {
	Token        string       `json:"token"`
	CartSnapshot *Cart        `json:"cart_snapshot"`
	CurrentStep  CheckoutStep `json:"current_step"`
	CreatedAt    time.Time    `json:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// Expired reports whether the session is past its deadline at the given
// instant. An expired session is indistinguishable from an absent one.
func (s *CheckoutSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
