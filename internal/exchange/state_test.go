package exchange

import (
	"errors"
	"testing"

	"github.com/efreitasn/tradebook/internal/domain"
)

func TestStateMachine_StartsClosed(t *testing.T) {
	m := newStateMachine()
	if m.current != domain.MarketClosed {
		t.Errorf("expected CLOSED initial state, got %s", m.current)
	}
}

func TestStateMachine_FullLifecycle(t *testing.T) {
	m := newStateMachine()
	for _, to := range []domain.MarketState{domain.MarketPreOpen, domain.MarketOpen, domain.MarketClosed} {
		if err := m.transitionTo(to); err != nil {
			t.Fatalf("transition to %s failed: %v", to, err)
		}
		if m.current != to {
			t.Fatalf("expected state %s, got %s", to, m.current)
		}
	}
}

func TestStateMachine_IllegalTransitions(t *testing.T) {
	cases := []struct {
		from domain.MarketState
		to   domain.MarketState
	}{
		{domain.MarketClosed, domain.MarketOpen},
		{domain.MarketPreOpen, domain.MarketClosed},
		{domain.MarketPreOpen, domain.MarketPreOpen},
		{domain.MarketOpen, domain.MarketPreOpen},
		{domain.MarketOpen, domain.MarketOpen},
	}
	for _, c := range cases {
		m := stateMachine{current: c.from}
		err := m.transitionTo(c.to)
		if !errors.Is(err, domain.ErrInvalidMarketStateTransition) {
			t.Errorf("%s to %s: expected ErrInvalidMarketStateTransition, got %v", c.from, c.to, err)
		}
		if m.current != c.from {
			t.Errorf("%s to %s: expected state unchanged on failure, got %s", c.from, c.to, m.current)
		}
	}
}

func TestStateMachine_UnknownState(t *testing.T) {
	m := newStateMachine()
	if err := m.transitionTo("HALTED"); !errors.Is(err, domain.ErrInvalidMarketStateTransition) {
		t.Errorf("expected ErrInvalidMarketStateTransition for unknown state, got %v", err)
	}
}

func TestStateMachine_ClosedSelfTransition(t *testing.T) {
	m := newStateMachine()
	if err := m.transitionTo(domain.MarketClosed); err != nil {
		t.Errorf("expected CLOSED to CLOSED to be legal, got %v", err)
	}
}
