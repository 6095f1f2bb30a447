package repository

import (
	"context"

	"github.com/sala-transit/reservation-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	FindByID(ctx context.Context, id uint) (*models.Trip, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Trip, error)
	AdjustCounters(ctx context.Context, tx *gorm.DB, tripID uint, deltaAvailable, deltaBooked int) error
	GetDB() *gorm.DB
}

type tripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) TripRepository {
	return &tripRepository{db: db}
}

func (r *tripRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *tripRepository) Create(ctx context.Context, trip *models.Trip) error {
	return r.db.WithContext(ctx).Create(trip).Error
}

func (r *tripRepository) FindByID(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).First(&trip, id).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

// FindByIDForUpdate acquires a row-level lock on the trip within the given
// transaction. Every booking decision starts here: the lock serializes all
// concurrent attempts touching the same trip.
func (r *tripRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&trip, id).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

// AdjustCounters moves available/booked by the given deltas. Callers must
// already hold the trip row lock in tx so the read-modify-write cannot race.
func (r *tripRepository) AdjustCounters(ctx context.Context, tx *gorm.DB, tripID uint, deltaAvailable, deltaBooked int) error {
	return tx.WithContext(ctx).
		Model(&models.Trip{}).
		Where("id = ?", tripID).
		Updates(map[string]any{
			"available_seats": gorm.Expr("available_seats + ?", deltaAvailable),
			"booked_seats":    gorm.Expr("booked_seats + ?", deltaBooked),
		}).Error
}
