package repository

import (
	"context"

	"github.com/sala-transit/reservation-service/internal/models"
	"gorm.io/gorm"
)

type TicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error
	FindByID(ctx context.Context, id uint) (*models.Ticket, error)
	FindByRef(ctx context.Context, bookingRef string) (*models.Ticket, error)
	FindByRefForUpdate(ctx context.Context, tx *gorm.DB, bookingRef string) (*models.Ticket, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Ticket, error)
	FindOccupyingBySeat(ctx context.Context, tx *gorm.DB, tripID uint, seatNumber string) (*models.Ticket, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, ticketID uint, status models.TicketStatus) error
	Updates(ctx context.Context, tx *gorm.DB, ticketID uint, fields map[string]any) error
	ListBookedSeatNumbers(ctx context.Context, tripID uint) ([]string, error)
	CountOccupying(ctx context.Context, tx *gorm.DB, tripID uint) (int64, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error {
	return tx.WithContext(ctx).Create(ticket).Error
}

func (r *ticketRepository) FindByID(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).First(&ticket, id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByRef(ctx context.Context, bookingRef string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Where("booking_ref = ?", bookingRef).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByRefForUpdate(ctx context.Context, tx *gorm.DB, bookingRef string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := tx.WithContext(ctx).
		Where("booking_ref = ?", bookingRef).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := tx.WithContext(ctx).First(&ticket, id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindOccupyingBySeat returns the confirmed or checked-in ticket holding
// the seat, if any. Run inside the trip-locked transaction.
func (r *ticketRepository) FindOccupyingBySeat(ctx context.Context, tx *gorm.DB, tripID uint, seatNumber string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := tx.WithContext(ctx).
		Where("trip_id = ? AND seat_number = ? AND status IN ?",
			tripID, seatNumber,
			[]models.TicketStatus{models.TicketConfirmed, models.TicketCheckedIn}).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, ticketID uint, status models.TicketStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ?", ticketID).
		Update("status", status).Error
}

func (r *ticketRepository) Updates(ctx context.Context, tx *gorm.DB, ticketID uint, fields map[string]any) error {
	return tx.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ?", ticketID).
		Updates(fields).Error
}

func (r *ticketRepository) ListBookedSeatNumbers(ctx context.Context, tripID uint) ([]string, error) {
	var seats []string
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("trip_id = ? AND status IN ?",
			tripID,
			[]models.TicketStatus{models.TicketConfirmed, models.TicketCheckedIn}).
		Order("seat_number ASC").
		Pluck("seat_number", &seats).Error
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// CountOccupying is the fallback capacity computation: passenger seats
// minus this count must equal the incrementally maintained available_seats.
func (r *ticketRepository) CountOccupying(ctx context.Context, tx *gorm.DB, tripID uint) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("trip_id = ? AND status IN ?",
			tripID,
			[]models.TicketStatus{models.TicketConfirmed, models.TicketCheckedIn}).
		Count(&count).Error
	return count, err
}
