package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sala-transit/reservation-service/internal/models"
	"github.com/sala-transit/reservation-service/internal/repository"
)

var (
	ErrEmptyLayout       = errors.New("seat layout is empty")
	ErrDuplicateSeatSpec = errors.New("duplicate seat number in layout")
)

// SeatSpec is one position in a vehicle layout.
type SeatSpec struct {
	SeatNumber string
	IsDriver   bool
}

type InventoryService interface {
	ProvisionSeats(ctx context.Context, vehicleID uint, layout []SeatSpec) ([]models.Seat, error)
	ListSeats(ctx context.Context, vehicleID uint) ([]models.Seat, error)
	PassengerSeatCount(ctx context.Context, vehicleID uint) (int, error)
	CreateTrip(ctx context.Context, trip *models.Trip) error
}

type inventoryService struct {
	seatRepo repository.SeatRepository
	tripRepo repository.TripRepository
}

func NewInventoryService(seatRepo repository.SeatRepository, tripRepo repository.TripRepository) InventoryService {
	return &inventoryService{seatRepo: seatRepo, tripRepo: tripRepo}
}

// ProvisionSeats bulk-creates the vehicle's seats from a layout. Seats are
// immutable afterwards; the layout must mark the driver positions.
func (s *inventoryService) ProvisionSeats(ctx context.Context, vehicleID uint, layout []SeatSpec) ([]models.Seat, error) {
	if len(layout) == 0 {
		return nil, ErrEmptyLayout
	}

	seen := make(map[string]bool, len(layout))
	seats := make([]models.Seat, 0, len(layout))
	for _, spec := range layout {
		if seen[spec.SeatNumber] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSeatSpec, spec.SeatNumber)
		}
		seen[spec.SeatNumber] = true
		seats = append(seats, models.Seat{
			VehicleID:  vehicleID,
			SeatNumber: spec.SeatNumber,
			IsDriver:   spec.IsDriver,
		})
	}

	if err := s.seatRepo.CreateBatch(ctx, seats); err != nil {
		return nil, fmt.Errorf("provision seats: %w", err)
	}
	return seats, nil
}

func (s *inventoryService) ListSeats(ctx context.Context, vehicleID uint) ([]models.Seat, error) {
	return s.seatRepo.FindByVehicle(ctx, vehicleID)
}

func (s *inventoryService) PassengerSeatCount(ctx context.Context, vehicleID uint) (int, error) {
	count, err := s.seatRepo.CountPassengerSeats(ctx, vehicleID)
	return int(count), err
}

// CreateTrip initializes the trip counters from the vehicle's passenger
// seat count. Driver seats never enter total_passenger_seats.
func (s *inventoryService) CreateTrip(ctx context.Context, trip *models.Trip) error {
	count, err := s.seatRepo.CountPassengerSeats(ctx, trip.VehicleID)
	if err != nil {
		return fmt.Errorf("count passenger seats: %w", err)
	}

	trip.TotalPassengerSeats = int(count)
	trip.AvailableSeats = int(count)
	trip.BookedSeats = 0
	if trip.Status == "" {
		trip.Status = models.TripScheduled
	}
	if trip.TicketSales == "" {
		trip.TicketSales = models.SalesOpen
	}
	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return fmt.Errorf("create trip: %w", err)
	}
	return nil
}
