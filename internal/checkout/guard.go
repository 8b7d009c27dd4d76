package checkout

import (
	"context"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

type DecisionKind int

const (
	// DecisionAllow serves the requested step.
	DecisionAllow DecisionKind = iota
	// DecisionRedirectToCart means checkout was never entered or the
	// session expired; the shopper starts over from the cart.
	DecisionRedirectToCart
	// DecisionRedirectToStep sends the shopper to the session's actual
	// step: no deep-linking ahead, no revisiting a finished step.
	DecisionRedirectToStep
)

type Decision struct {
	Kind DecisionKind
	Step domain.CheckoutStep // set for DecisionRedirectToStep
}

// StepGuard authorizes checkout page requests against the session's recorded
// progress. Forward-only navigation is enforced here at the presentation
// boundary, on top of the state machine itself.
type StepGuard struct {
	sessions *Manager
}

func NewStepGuard(sessions *Manager) *StepGuard {
	return &StepGuard{sessions: sessions}
}

func (g *StepGuard) Authorize(ctx context.Context, token string, requested domain.CheckoutStep) Decision {
	session, err := g.sessions.GetSession(ctx, token)
	if err != nil {
		return Decision{Kind: DecisionRedirectToCart}
	}

	if session.CurrentStep == requested {
		return Decision{Kind: DecisionAllow}
	}
	return Decision{Kind: DecisionRedirectToStep, Step: session.CurrentStep}
}
