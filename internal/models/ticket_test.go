package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketTransitions(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		ok       bool
	}{
		{TicketPendingPayment, TicketConfirmed, true},
		{TicketPendingPayment, TicketExpired, true},
		{TicketPendingPayment, TicketCheckedIn, false},
		{TicketPendingPayment, TicketCancelled, false},
		{TicketConfirmed, TicketCheckedIn, true},
		{TicketConfirmed, TicketCancelled, true},
		{TicketConfirmed, TicketExpired, false},
		{TicketConfirmed, TicketPendingPayment, false},
		{TicketCheckedIn, TicketCancelled, false},
		{TicketCheckedIn, TicketConfirmed, false},
		{TicketCancelled, TicketConfirmed, false},
		{TicketExpired, TicketConfirmed, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to),
			"%s -> %s should be %v", tc.from, tc.to, tc.ok)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, TicketCheckedIn.Terminal())
	assert.True(t, TicketCancelled.Terminal())
	assert.True(t, TicketExpired.Terminal())
	assert.False(t, TicketPendingPayment.Terminal())
	assert.False(t, TicketConfirmed.Terminal())
}

func TestOccupyingStatuses(t *testing.T) {
	assert.True(t, TicketConfirmed.Occupying())
	assert.True(t, TicketCheckedIn.Occupying())
	assert.False(t, TicketPendingPayment.Occupying())
	assert.False(t, TicketCancelled.Occupying())
	assert.False(t, TicketExpired.Occupying())
}

func TestHoldLive(t *testing.T) {
	now := time.Now()

	active := &ReservationHold{Status: HoldActive, ExpiresAt: now.Add(5 * time.Minute)}
	assert.True(t, active.Live(now))

	overdue := &ReservationHold{Status: HoldActive, ExpiresAt: now.Add(-1 * time.Second)}
	assert.False(t, overdue.Live(now), "an overdue hold is dead even before the sweeper runs")

	consumed := &ReservationHold{Status: HoldConsumed, ExpiresAt: now.Add(5 * time.Minute)}
	assert.False(t, consumed.Live(now))

	released := &ReservationHold{Status: HoldReleased, ExpiresAt: now.Add(5 * time.Minute)}
	assert.False(t, released.Live(now))
}

func TestTripOpenForSale(t *testing.T) {
	now := time.Now()

	open := &Trip{Status: TripScheduled, TicketSales: SalesOpen, DepartureAt: now.Add(time.Hour)}
	assert.True(t, open.OpenForSale(now))

	closed := &Trip{Status: TripScheduled, TicketSales: SalesClosed, DepartureAt: now.Add(time.Hour)}
	assert.False(t, closed.OpenForSale(now))

	departed := &Trip{Status: TripScheduled, TicketSales: SalesOpen, DepartureAt: now.Add(-time.Minute)}
	assert.False(t, departed.OpenForSale(now))

	cancelled := &Trip{Status: TripCancelled, TicketSales: SalesOpen, DepartureAt: now.Add(time.Hour)}
	assert.False(t, cancelled.OpenForSale(now))
}
