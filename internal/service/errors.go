package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors, grouped by how callers should react.
var (
	// not found
	ErrTripNotFound   = errors.New("trip not found")
	ErrSeatNotFound   = errors.New("seat not found on this vehicle")
	ErrHoldNotFound   = errors.New("hold not found")
	ErrTicketNotFound = errors.New("ticket not found")

	// conflict: someone else has the seat
	ErrSeatBooked = errors.New("seat is already booked")
	ErrSeatHeld   = errors.New("seat is held by another customer")

	// validation: the request can never succeed as made
	ErrDriverSeat        = errors.New("driver seat is not bookable")
	ErrSalesClosed       = errors.New("ticket sales are closed for this trip")
	ErrTripDeparted      = errors.New("trip has already departed")
	ErrInsufficientSeats = errors.New("not enough available seats")
	ErrVehicleMismatch   = errors.New("vehicle does not match this trip")
	ErrNoSeatsRequested  = errors.New("no seats requested")
	ErrDuplicateSeats    = errors.New("duplicate seat numbers in request")

	// state: the entity exists but is in the wrong state
	ErrHoldNotActive        = errors.New("hold is no longer active")
	ErrHoldExpired          = errors.New("hold has expired")
	ErrTicketNotScannable   = errors.New("ticket is not confirmed for boarding")
	ErrTicketNotCancellable = errors.New("ticket cannot be cancelled in its current state")
	ErrTicketUsed           = errors.New("ticket is already checked in")
	ErrCancelWindowClosed   = errors.New("cancellation window has closed")
	ErrIllegalTransition    = errors.New("illegal ticket state transition")

	// transient: lock contention or serialization conflict, safe to retry
	ErrTxConflict = errors.New("transaction conflict, retry")
)

// Postgres SQLSTATE codes the engine reacts to.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// IsTransient reports whether the failure is safe to retry as-is.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTxConflict)
}

// classifyTxError maps low-level Postgres failures onto the sentinel
// taxonomy. Serialization failures and deadlocks become retryable; a
// unique violation on one of the partial seat indexes means a concurrent
// transaction won the seat.
func classifyTxError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return ErrTxConflict
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case "idx_ticket_seat_occupied":
				return ErrSeatBooked
			case "idx_hold_seat_active":
				return ErrSeatHeld
			}
		}
	}
	return err
}
