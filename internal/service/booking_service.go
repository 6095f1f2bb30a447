package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sala-transit/reservation-service/internal/models"
	"github.com/sala-transit/reservation-service/internal/repository"
	"github.com/sala-transit/reservation-service/pkg/rabbitmq"
	"gorm.io/gorm"
)

// CancelLeadTime is how long before departure a confirmed ticket can still
// be cancelled. At departure-10min and later, cancellation is rejected.
const CancelLeadTime = 10 * time.Minute

type SeatState string

const (
	SeatAvailable SeatState = "available"
	SeatLocked    SeatState = "locked"
	SeatBooked    SeatState = "booked"
	SeatDriver    SeatState = "driver"
)

type SeatMapEntry struct {
	SeatNumber string    `json:"seat_number"`
	State      SeatState `json:"state"`
}

type SeatMap struct {
	TripID              uint           `json:"trip_id"`
	Seats               []SeatMapEntry `json:"seats"`
	Available           int            `json:"available"`
	Locked              int            `json:"locked"`
	Booked              int            `json:"booked"`
	Driver              int            `json:"driver"`
	TotalPassengerSeats int            `json:"total_passenger_seats"`
}

type BulkBookingResult struct {
	Tickets        []models.Ticket `json:"tickets"`
	TotalPrice     float64         `json:"total_price"`
	AvailableSeats int             `json:"available_seats"`
	BookedSeats    int             `json:"booked_seats"`
}

// CapacityAudit compares the incrementally maintained trip counters against
// the ticket ledger. Consistent must always be true.
type CapacityAudit struct {
	TripID              uint `json:"trip_id"`
	TotalPassengerSeats int  `json:"total_passenger_seats"`
	AvailableSeats      int  `json:"available_seats"`
	BookedSeats         int  `json:"booked_seats"`
	OccupyingTickets    int  `json:"occupying_tickets"`
	DerivedAvailable    int  `json:"derived_available"`
	Consistent          bool `json:"consistent"`
}

type BookingService interface {
	CreateHold(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.ReservationHold, *models.Ticket, error)
	ConfirmHold(ctx context.Context, holdToken, paymentRef string) (*models.Ticket, error)
	ReleaseHold(ctx context.Context, holdToken string) (*models.ReservationHold, error)
	BookSeat(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.Ticket, error)
	BookSeatsBulk(ctx context.Context, tripID, vehicleID uint, seatNumbers []string, customerID string, pricePerSeat float64) (*BulkBookingResult, error)
	CancelTicket(ctx context.Context, bookingRef string) (*models.Ticket, error)
	CheckIn(ctx context.Context, bookingRef string) (*models.Ticket, bool, error)
	GetTicket(ctx context.Context, bookingRef string) (*models.Ticket, error)
	GetSeatMap(ctx context.Context, tripID uint) (*SeatMap, error)
	GetBookedSeats(ctx context.Context, tripID uint) ([]string, error)
	AuditCapacity(ctx context.Context, tripID uint) (*CapacityAudit, error)
}

type bookingService struct {
	tripRepo   repository.TripRepository
	seatRepo   repository.SeatRepository
	ticketRepo repository.TicketRepository
	holdRepo   repository.HoldRepository
	publisher  *rabbitmq.Publisher
	holdTTL    time.Duration
}

func NewBookingService(
	tripRepo repository.TripRepository,
	seatRepo repository.SeatRepository,
	ticketRepo repository.TicketRepository,
	holdRepo repository.HoldRepository,
	publisher *rabbitmq.Publisher,
	holdTTL time.Duration,
) BookingService {
	return &bookingService{
		tripRepo:   tripRepo,
		seatRepo:   seatRepo,
		ticketRepo: ticketRepo,
		holdRepo:   holdRepo,
		publisher:  publisher,
		holdTTL:    holdTTL,
	}
}

// inTx runs fn in a serializable transaction and classifies the failure.
// Serialization conflicts surface as ErrTxConflict; the caller may retry.
func (s *bookingService) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.tripRepo.GetDB().WithContext(ctx).Transaction(fn, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	return classifyTxError(err)
}

func (s *bookingService) lockTrip(ctx context.Context, tx *gorm.DB, tripID uint) (*models.Trip, error) {
	trip, err := s.tripRepo.FindByIDForUpdate(ctx, tx, tripID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTripNotFound
	}
	return trip, err
}

func tripSellable(trip *models.Trip, now time.Time) error {
	if !now.Before(trip.DepartureAt) {
		return ErrTripDeparted
	}
	if trip.Status != models.TripScheduled || trip.TicketSales != models.SalesOpen {
		return ErrSalesClosed
	}
	return nil
}

// checkSeatSellable is the single validation gate shared by hold creation
// and direct booking. It must run inside the trip-locked transaction.
//
// A live hold owned by exemptCustomer does not block (direct booking by the
// holder supersedes their own checkout hold); it is returned so the caller
// can retire it. With exemptCustomer empty every live hold blocks.
func (s *bookingService) checkSeatSellable(ctx context.Context, tx *gorm.DB, trip *models.Trip, seatNumber, exemptCustomer string, now time.Time) (*models.ReservationHold, error) {
	seat, err := s.seatRepo.FindByVehicleAndNumber(ctx, trip.VehicleID, seatNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSeatNotFound
	}
	if err != nil {
		return nil, err
	}
	if seat.IsDriver {
		return nil, ErrDriverSeat
	}

	_, err = s.ticketRepo.FindOccupyingBySeat(ctx, tx, trip.ID, seatNumber)
	if err == nil {
		return nil, ErrSeatBooked
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hold, err := s.holdRepo.FindLiveBySeat(ctx, tx, trip.ID, seatNumber, now)
	if err == nil {
		if exemptCustomer == "" || hold.CustomerID != exemptCustomer {
			return nil, ErrSeatHeld
		}
		return hold, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return nil, nil
}

// CreateHold starts the two-phase checkout: it validates the seat under the
// trip row lock, then inserts the hold and its paired pending ticket as one
// unit. The seat stays counted as available until payment confirms.
func (s *bookingService) CreateHold(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.ReservationHold, *models.Ticket, error) {
	var hold *models.ReservationHold
	var ticket *models.Ticket

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		trip, err := s.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := tripSellable(trip, now); err != nil {
			return err
		}
		if _, err := s.checkSeatSellable(ctx, tx, trip, seatNumber, "", now); err != nil {
			return err
		}

		ticket = &models.Ticket{
			BookingRef: uuid.NewString(),
			TripID:     tripID,
			SeatNumber: seatNumber,
			CustomerID: customerID,
			Price:      price,
			Status:     models.TicketPendingPayment,
		}
		if err := s.ticketRepo.Create(ctx, tx, ticket); err != nil {
			return err
		}

		hold = &models.ReservationHold{
			HoldToken:  uuid.NewString(),
			TripID:     tripID,
			SeatNumber: seatNumber,
			CustomerID: customerID,
			TicketID:   ticket.ID,
			Status:     models.HoldActive,
			ExpiresAt:  now.Add(s.holdTTL),
		}
		if err := s.holdRepo.Create(ctx, tx, hold); err != nil {
			return err
		}

		if err := s.ticketRepo.Updates(ctx, tx, ticket.ID, map[string]any{"hold_id": hold.ID}); err != nil {
			return err
		}
		ticket.HoldID = &hold.ID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return hold, ticket, nil
}

// ConfirmHold is the second phase: on the external payment-success signal
// it re-validates the hold, flips the ticket to confirmed, moves the trip
// counters and marks the hold consumed, all in one transaction.
func (s *bookingService) ConfirmHold(ctx context.Context, holdToken, paymentRef string) (*models.Ticket, error) {
	pre, err := s.holdRepo.FindByToken(ctx, holdToken)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, err
	}

	var ticket *models.Ticket
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.lockTrip(ctx, tx, pre.TripID); err != nil {
			return err
		}

		hold, err := s.holdRepo.FindByTokenForUpdate(ctx, tx, holdToken)
		if err != nil {
			return err
		}

		now := time.Now()
		if hold.Status != models.HoldActive {
			return ErrHoldNotActive
		}
		if !now.Before(hold.ExpiresAt) {
			return ErrHoldExpired
		}

		t, err := s.ticketRepo.FindByIDForUpdate(ctx, tx, hold.TicketID)
		if err != nil {
			return err
		}
		if !models.CanTransition(t.Status, models.TicketConfirmed) {
			return ErrIllegalTransition
		}

		fields := map[string]any{"status": models.TicketConfirmed}
		if paymentRef != "" {
			fields["payment_ref"] = paymentRef
		}
		if err := s.ticketRepo.Updates(ctx, tx, t.ID, fields); err != nil {
			return err
		}
		if err := s.tripRepo.AdjustCounters(ctx, tx, hold.TripID, -1, +1); err != nil {
			return err
		}
		if err := s.holdRepo.UpdateStatus(ctx, tx, hold.ID, models.HoldConsumed); err != nil {
			return err
		}

		t.Status = models.TicketConfirmed
		if paymentRef != "" {
			t.PaymentRef = &paymentRef
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("ticket.confirmed", ticket)
	return ticket, nil
}

// ReleaseHold is the explicit checkout abort: the hold is released and its
// paired pending ticket expired. Abandoning checkout without calling this
// reaches the same state through the sweeper.
func (s *bookingService) ReleaseHold(ctx context.Context, holdToken string) (*models.ReservationHold, error) {
	pre, err := s.holdRepo.FindByToken(ctx, holdToken)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, err
	}

	var hold *models.ReservationHold
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.lockTrip(ctx, tx, pre.TripID); err != nil {
			return err
		}

		h, err := s.holdRepo.FindByTokenForUpdate(ctx, tx, holdToken)
		if err != nil {
			return err
		}
		if h.Status != models.HoldActive {
			return ErrHoldNotActive
		}

		if err := s.retireHold(ctx, tx, h, models.HoldReleased); err != nil {
			return err
		}
		h.Status = models.HoldReleased
		hold = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hold, nil
}

// retireHold moves an active hold to released/expired and cascades its
// paired ticket to expired if still pending payment. Counters are untouched:
// a pending seat was never counted as booked.
func (s *bookingService) retireHold(ctx context.Context, tx *gorm.DB, hold *models.ReservationHold, to models.HoldStatus) error {
	if err := s.holdRepo.UpdateStatus(ctx, tx, hold.ID, to); err != nil {
		return err
	}

	t, err := s.ticketRepo.FindByIDForUpdate(ctx, tx, hold.TicketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if t.Status == models.TicketPendingPayment {
		if err := s.ticketRepo.UpdateStatus(ctx, tx, t.ID, models.TicketExpired); err != nil {
			return err
		}
	}
	return nil
}

// BookSeat is the one-seat direct booking, used when payment is already
// known to have succeeded. It runs through the same path as bulk booking so
// both protocols share one validation set.
func (s *bookingService) BookSeat(ctx context.Context, tripID uint, seatNumber, customerID string, price float64) (*models.Ticket, error) {
	result, err := s.BookSeatsBulk(ctx, tripID, 0, []string{seatNumber}, customerID, price)
	if err != nil {
		return nil, err
	}
	return &result.Tickets[0], nil
}

// BookSeatsBulk books N seats on one trip atomically: either every seat is
// confirmed and the counters move by N, or nothing is written. vehicleID
// zero skips the vehicle cross-check.
func (s *bookingService) BookSeatsBulk(ctx context.Context, tripID, vehicleID uint, seatNumbers []string, customerID string, pricePerSeat float64) (*BulkBookingResult, error) {
	if len(seatNumbers) == 0 {
		return nil, ErrNoSeatsRequested
	}
	seen := make(map[string]bool, len(seatNumbers))
	for _, sn := range seatNumbers {
		if seen[sn] {
			return nil, ErrDuplicateSeats
		}
		seen[sn] = true
	}

	var result *BulkBookingResult
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		trip, err := s.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if vehicleID != 0 && vehicleID != trip.VehicleID {
			return ErrVehicleMismatch
		}

		now := time.Now()
		if err := tripSellable(trip, now); err != nil {
			return err
		}
		if trip.AvailableSeats < len(seatNumbers) {
			return ErrInsufficientSeats
		}

		tickets := make([]models.Ticket, 0, len(seatNumbers))
		for _, sn := range seatNumbers {
			ownHold, err := s.checkSeatSellable(ctx, tx, trip, sn, customerID, now)
			if err != nil {
				return err
			}
			if ownHold != nil {
				// the direct booking supersedes the customer's own
				// checkout hold on this seat
				if err := s.retireHold(ctx, tx, ownHold, models.HoldReleased); err != nil {
					return err
				}
			}

			ticket := models.Ticket{
				BookingRef: uuid.NewString(),
				TripID:     tripID,
				SeatNumber: sn,
				CustomerID: customerID,
				Price:      pricePerSeat,
				Status:     models.TicketConfirmed,
			}
			if err := s.ticketRepo.Create(ctx, tx, &ticket); err != nil {
				return err
			}
			tickets = append(tickets, ticket)
		}

		n := len(tickets)
		if err := s.tripRepo.AdjustCounters(ctx, tx, tripID, -n, +n); err != nil {
			return err
		}

		result = &BulkBookingResult{
			Tickets:        tickets,
			TotalPrice:     pricePerSeat * float64(n),
			AvailableSeats: trip.AvailableSeats - n,
			BookedSeats:    trip.BookedSeats + n,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range result.Tickets {
		s.publish("ticket.confirmed", &result.Tickets[i])
	}
	return result, nil
}

// CancelTicket reverses a confirmed booking, allowed strictly before
// departure minus the lead time. Checked-in tickets are never cancellable.
func (s *bookingService) CancelTicket(ctx context.Context, bookingRef string) (*models.Ticket, error) {
	pre, err := s.ticketRepo.FindByRef(ctx, bookingRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}

	var ticket *models.Ticket
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		trip, err := s.lockTrip(ctx, tx, pre.TripID)
		if err != nil {
			return err
		}

		t, err := s.ticketRepo.FindByRefForUpdate(ctx, tx, bookingRef)
		if err != nil {
			return err
		}
		if t.Status == models.TicketCheckedIn {
			return ErrTicketUsed
		}
		if !models.CanTransition(t.Status, models.TicketCancelled) {
			return ErrTicketNotCancellable
		}
		if !time.Now().Before(trip.DepartureAt.Add(-CancelLeadTime)) {
			return ErrCancelWindowClosed
		}

		if err := s.ticketRepo.UpdateStatus(ctx, tx, t.ID, models.TicketCancelled); err != nil {
			return err
		}
		if err := s.tripRepo.AdjustCounters(ctx, tx, t.TripID, +1, -1); err != nil {
			return err
		}

		// drop any lingering hold still pointing at this ticket
		if h, err := s.holdRepo.FindLiveByTicket(ctx, tx, t.ID); err == nil {
			if err := s.holdRepo.UpdateStatus(ctx, tx, h.ID, models.HoldReleased); err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		t.Status = models.TicketCancelled
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("ticket.cancelled", ticket)
	return ticket, nil
}

// CheckIn marks a confirmed ticket as used at boarding. Rescanning an
// already checked-in ticket reports alreadyUsed with no state change.
func (s *bookingService) CheckIn(ctx context.Context, bookingRef string) (*models.Ticket, bool, error) {
	if _, err := s.ticketRepo.FindByRef(ctx, bookingRef); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTicketNotFound
		}
		return nil, false, err
	}

	var ticket *models.Ticket
	var alreadyUsed bool
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		t, err := s.ticketRepo.FindByRefForUpdate(ctx, tx, bookingRef)
		if err != nil {
			return err
		}
		if t.Status == models.TicketCheckedIn {
			alreadyUsed = true
			ticket = t
			return nil
		}
		if !models.CanTransition(t.Status, models.TicketCheckedIn) {
			return ErrTicketNotScannable
		}

		now := time.Now()
		err = s.ticketRepo.Updates(ctx, tx, t.ID, map[string]any{
			"status":        models.TicketCheckedIn,
			"checked_in_at": now,
		})
		if err != nil {
			return err
		}
		t.Status = models.TicketCheckedIn
		t.CheckedInAt = &now
		ticket = t
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return ticket, alreadyUsed, nil
}

func (s *bookingService) GetTicket(ctx context.Context, bookingRef string) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.FindByRef(ctx, bookingRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	return ticket, err
}

// GetSeatMap renders every seat on the trip's vehicle as driver, booked,
// locked (live hold) or available, with summary counts.
func (s *bookingService) GetSeatMap(ctx context.Context, tripID uint) (*SeatMap, error) {
	trip, err := s.tripRepo.FindByID(ctx, tripID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}

	seats, err := s.seatRepo.FindByVehicle(ctx, trip.VehicleID)
	if err != nil {
		return nil, err
	}
	bookedSeats, err := s.ticketRepo.ListBookedSeatNumbers(ctx, tripID)
	if err != nil {
		return nil, err
	}
	holds, err := s.holdRepo.ListLiveByTrip(ctx, tripID, time.Now())
	if err != nil {
		return nil, err
	}

	booked := make(map[string]bool, len(bookedSeats))
	for _, sn := range bookedSeats {
		booked[sn] = true
	}
	locked := make(map[string]bool, len(holds))
	for _, h := range holds {
		locked[h.SeatNumber] = true
	}

	sm := &SeatMap{TripID: tripID, TotalPassengerSeats: trip.TotalPassengerSeats}
	for _, seat := range seats {
		state := SeatAvailable
		switch {
		case seat.IsDriver:
			state = SeatDriver
			sm.Driver++
		case booked[seat.SeatNumber]:
			state = SeatBooked
			sm.Booked++
		case locked[seat.SeatNumber]:
			state = SeatLocked
			sm.Locked++
		default:
			sm.Available++
		}
		sm.Seats = append(sm.Seats, SeatMapEntry{SeatNumber: seat.SeatNumber, State: state})
	}
	return sm, nil
}

func (s *bookingService) GetBookedSeats(ctx context.Context, tripID uint) ([]string, error) {
	if _, err := s.tripRepo.FindByID(ctx, tripID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return s.ticketRepo.ListBookedSeatNumbers(ctx, tripID)
}

// AuditCapacity recomputes availability from the ticket ledger under the
// trip lock and compares it with the maintained counters.
func (s *bookingService) AuditCapacity(ctx context.Context, tripID uint) (*CapacityAudit, error) {
	var audit *CapacityAudit
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		trip, err := s.lockTrip(ctx, tx, tripID)
		if err != nil {
			return err
		}
		occupying, err := s.ticketRepo.CountOccupying(ctx, tx, tripID)
		if err != nil {
			return err
		}

		derived := trip.TotalPassengerSeats - int(occupying)
		audit = &CapacityAudit{
			TripID:              tripID,
			TotalPassengerSeats: trip.TotalPassengerSeats,
			AvailableSeats:      trip.AvailableSeats,
			BookedSeats:         trip.BookedSeats,
			OccupyingTickets:    int(occupying),
			DerivedAvailable:    derived,
			Consistent:          derived == trip.AvailableSeats && int(occupying) == trip.BookedSeats,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audit, nil
}

// publish emits a ticket event fire-and-forget; a broker failure must never
// affect a committed booking.
func (s *bookingService) publish(routingKey string, ticket *models.Ticket) {
	if s.publisher == nil || ticket == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, ticket); err != nil {
		log.Printf("[Booking] publish %s for %s failed: %v", routingKey, ticket.BookingRef, err)
	}
}
