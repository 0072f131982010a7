package exchange

import (
	"fmt"

	"github.com/efreitasn/tradebook/internal/domain"
)

// stateMachine tracks the exchange-wide market state. It is not
// self-locking: the Exchange serializes access under its own lock.
type stateMachine struct {
	current domain.MarketState
}

func newStateMachine() stateMachine {
	return stateMachine{current: domain.MarketClosed}
}

// transitionTo switches to the requested state if the transition is legal,
// leaving the state unchanged otherwise.
func (m *stateMachine) transitionTo(to domain.MarketState) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown state %q", domain.ErrInvalidMarketStateTransition, to)
	}
	if !m.current.CanTransitionTo(to) {
		return fmt.Errorf("%w: cannot go from %s to %s",
			domain.ErrInvalidMarketStateTransition, m.current, to)
	}
	m.current = to
	return nil
}
