package repository

import (
	"context"
	"time"

	"github.com/sala-transit/reservation-service/internal/models"
	"gorm.io/gorm"
)

type HoldRepository interface {
	Create(ctx context.Context, tx *gorm.DB, hold *models.ReservationHold) error
	FindByToken(ctx context.Context, token string) (*models.ReservationHold, error)
	FindByTokenForUpdate(ctx context.Context, tx *gorm.DB, token string) (*models.ReservationHold, error)
	FindLiveBySeat(ctx context.Context, tx *gorm.DB, tripID uint, seatNumber string, now time.Time) (*models.ReservationHold, error)
	FindLiveByTicket(ctx context.Context, tx *gorm.DB, ticketID uint) (*models.ReservationHold, error)
	ListLiveByTrip(ctx context.Context, tripID uint, now time.Time) ([]models.ReservationHold, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, holdID uint, status models.HoldStatus) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.ReservationHold, error)
}

type holdRepository struct {
	db *gorm.DB
}

func NewHoldRepository(db *gorm.DB) HoldRepository {
	return &holdRepository{db: db}
}

func (r *holdRepository) Create(ctx context.Context, tx *gorm.DB, hold *models.ReservationHold) error {
	return tx.WithContext(ctx).Create(hold).Error
}

func (r *holdRepository) FindByToken(ctx context.Context, token string) (*models.ReservationHold, error) {
	var hold models.ReservationHold
	err := r.db.WithContext(ctx).
		Where("hold_token = ?", token).
		First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *holdRepository) FindByTokenForUpdate(ctx context.Context, tx *gorm.DB, token string) (*models.ReservationHold, error) {
	var hold models.ReservationHold
	err := tx.WithContext(ctx).
		Where("hold_token = ?", token).
		First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// FindLiveBySeat returns the active, unexpired hold blocking the seat, if
// any. Run inside the trip-locked transaction.
func (r *holdRepository) FindLiveBySeat(ctx context.Context, tx *gorm.DB, tripID uint, seatNumber string, now time.Time) (*models.ReservationHold, error) {
	var hold models.ReservationHold
	err := tx.WithContext(ctx).
		Where("trip_id = ? AND seat_number = ? AND status = ? AND expires_at > ?",
			tripID, seatNumber, models.HoldActive, now).
		First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *holdRepository) FindLiveByTicket(ctx context.Context, tx *gorm.DB, ticketID uint) (*models.ReservationHold, error) {
	var hold models.ReservationHold
	err := tx.WithContext(ctx).
		Where("ticket_id = ? AND status = ?", ticketID, models.HoldActive).
		First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// ListLiveByTrip returns every active, unexpired hold on the trip. Used by
// the seat map, which reads outside any transaction.
func (r *holdRepository) ListLiveByTrip(ctx context.Context, tripID uint, now time.Time) ([]models.ReservationHold, error) {
	var holds []models.ReservationHold
	err := r.db.WithContext(ctx).
		Where("trip_id = ? AND status = ? AND expires_at > ?", tripID, models.HoldActive, now).
		Find(&holds).Error
	if err != nil {
		return nil, err
	}
	return holds, nil
}

func (r *holdRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, holdID uint, status models.HoldStatus) error {
	return tx.WithContext(ctx).
		Model(&models.ReservationHold{}).
		Where("id = ?", holdID).
		Update("status", status).Error
}

// ListExpired returns active holds whose expiry has passed, oldest first.
// Read outside any transaction; the sweeper re-checks each hold under its
// own row-locked transaction before touching it.
func (r *holdRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.ReservationHold, error) {
	var holds []models.ReservationHold
	q := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.HoldActive, now).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&holds).Error; err != nil {
		return nil, err
	}
	return holds, nil
}
