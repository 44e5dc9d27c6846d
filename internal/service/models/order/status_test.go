package order

import (
	"testing"

	"github.com/gpustore/backend/internal/service/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	allStatuses := []Status{StatusPending, StatusProcessing, StatusCompleted, StatusExpired}

	allowed := map[Status]map[Status]bool{
		StatusPending: {
			StatusProcessing: true,
			StatusExpired:    true,
		},
		StatusProcessing: {
			StatusCompleted: true,
			StatusExpired:   true,
		},
		StatusCompleted: {},
		StatusExpired:   {},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			got := from.CanTransitionTo(to)
			want := allowed[from][to]
			assert.Equal(t, want, got, "%s -> %s", from, to)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"PENDING", "PROCESSING", "COMPLETED", "EXPIRED"} {
		s, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, s.String())
	}

	for _, invalid := range []string{"", "pending", "SHIPPED", "DONE"} {
		_, err := ParseStatus(invalid)
		assert.ErrorIs(t, err, ErrInvalidStatus, "input %q", invalid)
	}
}

func TestOrder_TransitionTo(t *testing.T) {
	o := &Order{Status: StatusPending}

	require.NoError(t, o.TransitionTo(StatusProcessing))
	assert.Equal(t, StatusProcessing, o.Status)

	require.NoError(t, o.TransitionTo(StatusCompleted))
	assert.Equal(t, StatusCompleted, o.Status)
}

func TestOrder_TransitionTo_Invalid(t *testing.T) {
	o := &Order{Status: StatusPending}

	err := o.TransitionTo(StatusCompleted)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Equal(t, StatusPending, o.Status, "failed transition must not mutate the order")

	o.Status = StatusExpired
	err = o.TransitionTo(StatusProcessing)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Equal(t, StatusExpired, o.Status)
}
