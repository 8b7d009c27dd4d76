package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanAdvanceTo(t *testing.T) {
	tests := []struct {
		name   string
		from   CheckoutStep
		target CheckoutStep
		want   bool
	}{
		{"shipping to payment", StepShipping, StepPayment, true},
		{"payment to completed", StepPayment, StepCompleted, true},
		{"skip ahead", StepShipping, StepCompleted, false},
		{"backward", StepPayment, StepShipping, false},
		{"repeat current", StepShipping, StepShipping, false},
		{"past terminal", StepCompleted, StepPayment, false},
		{"repeat terminal", StepCompleted, StepCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAdvanceTo(tt.from, tt.target))
		})
	}
}

func TestParseStep(t *testing.T) {
	step, ok := ParseStep("payment")
	assert.True(t, ok)
	assert.Equal(t, StepPayment, step)

	_, ok = ParseStep("review")
	assert.False(t, ok)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	session := &CheckoutSession{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, session.Expired(now))
	assert.True(t, session.Expired(now.Add(time.Minute)))
	assert.True(t, session.Expired(now.Add(2*time.Minute)))
}
