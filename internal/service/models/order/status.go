package order

import (
	"database/sql/driver"
	"errors"

	"github.com/gpustore/backend/internal/service/errs"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusExpired    Status = "EXPIRED"
)

var ErrInvalidStatus = errors.New("invalid order status")

// transitions is the single source of truth for allowed status edges.
// COMPLETED and EXPIRED are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusExpired},
	StatusProcessing: {StatusCompleted, StatusExpired},
	StatusCompleted:  {},
	StatusExpired:    {},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// IsTerminal reports whether no transition leaves this status.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the edge s -> target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}

	return false
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusExpired:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// TransitionTo is the only mutation entry point for Status. Any edge
// outside the transition table fails with errs.ErrInvalidTransition.
func (o *Order) TransitionTo(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return errs.InvalidTransition(o.Status.String(), target.String())
	}

	o.Status = target

	return nil
}
