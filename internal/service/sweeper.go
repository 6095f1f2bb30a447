package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/sala-transit/reservation-service/internal/models"
	"github.com/sala-transit/reservation-service/internal/repository"
	"github.com/sala-transit/reservation-service/pkg/rabbitmq"
	"gorm.io/gorm"
)

const sweepBatchSize = 100

// ExpirySweeper reclaims lapsed holds on a fixed interval: each overdue
// active hold becomes expired and its paired pending ticket expires with
// it, freeing the seat without any client action. Every hold is processed
// in its own trip-locked transaction, so one failure cannot block the rest
// and the sweeper never races in-flight bookings.
type ExpirySweeper struct {
	tripRepo   repository.TripRepository
	holdRepo   repository.HoldRepository
	ticketRepo repository.TicketRepository
	publisher  *rabbitmq.Publisher
	interval   time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewExpirySweeper(
	tripRepo repository.TripRepository,
	holdRepo repository.HoldRepository,
	ticketRepo repository.TicketRepository,
	publisher *rabbitmq.Publisher,
	interval time.Duration,
) *ExpirySweeper {
	return &ExpirySweeper{
		tripRepo:   tripRepo,
		holdRepo:   holdRepo,
		ticketRepo: ticketRepo,
		publisher:  publisher,
		interval:   interval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the sweep loop in a goroutine until Stop is called.
func (sw *ExpirySweeper) Start() {
	go func() {
		defer close(sw.done)
		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		log.Printf("[Sweeper] started, interval %s", sw.interval)
		for {
			select {
			case <-ticker.C:
				swept, err := sw.SweepOnce(context.Background())
				if err != nil {
					log.Printf("[Sweeper] sweep failed: %v", err)
				} else if swept > 0 {
					log.Printf("[Sweeper] expired %d hold(s)", swept)
				}
			case <-sw.stop:
				log.Println("[Sweeper] stopping")
				return
			}
		}
	}()
}

func (sw *ExpirySweeper) Stop() {
	close(sw.stop)
	<-sw.done
}

// SweepOnce expires every overdue active hold it can see. Failures on
// individual holds are logged and skipped; the error return covers only
// the listing itself.
func (sw *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	holds, err := sw.holdRepo.ListExpired(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range holds {
		expired, err := sw.expireHold(ctx, &holds[i])
		if err != nil {
			log.Printf("[Sweeper] hold %s: %v", holds[i].HoldToken, err)
			continue
		}
		if expired != nil {
			swept++
			if sw.publisher != nil {
				if err := sw.publisher.Publish("ticket.expired", expired); err != nil {
					log.Printf("[Sweeper] publish ticket.expired for %s failed: %v", expired.BookingRef, err)
				}
			}
		}
	}
	return swept, nil
}

// expireHold retires one hold in its own serializable transaction under the
// trip row lock, re-checking state first: a booking transaction may have
// consumed or released the hold between listing and locking. Returns the
// expired pending ticket, if any.
func (sw *ExpirySweeper) expireHold(ctx context.Context, stale *models.ReservationHold) (*models.Ticket, error) {
	var expiredTicket *models.Ticket

	err := sw.tripRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := sw.tripRepo.FindByIDForUpdate(ctx, tx, stale.TripID); err != nil {
			return err
		}

		hold, err := sw.holdRepo.FindByTokenForUpdate(ctx, tx, stale.HoldToken)
		if err != nil {
			return err
		}
		if hold.Status != models.HoldActive || time.Now().Before(hold.ExpiresAt) {
			return nil // already handled, or renewed out from under us
		}

		if err := sw.holdRepo.UpdateStatus(ctx, tx, hold.ID, models.HoldExpired); err != nil {
			return err
		}

		ticket, err := sw.ticketRepo.FindByIDForUpdate(ctx, tx, hold.TicketID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if ticket.Status == models.TicketPendingPayment {
			if err := sw.ticketRepo.UpdateStatus(ctx, tx, ticket.ID, models.TicketExpired); err != nil {
				return err
			}
			ticket.Status = models.TicketExpired
			expiredTicket = ticket
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		return nil, classifyTxError(err)
	}
	return expiredTicket, nil
}
