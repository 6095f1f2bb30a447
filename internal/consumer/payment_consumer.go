package consumer

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sala-transit/reservation-service/internal/service"
)

// PaymentEvent is the external payment-success signal. The gateway itself
// is out of scope; this message is the only thing the engine sees of it.
type PaymentEvent struct {
	HoldToken  string `json:"hold_token"`
	PaymentRef string `json:"payment_ref"`
}

type PaymentConsumer struct {
	svc service.BookingService
}

func NewPaymentConsumer(svc service.BookingService) *PaymentConsumer {
	return &PaymentConsumer{svc: svc}
}

// Start listens for payment.succeeded messages and confirms the matching
// holds.
func (pc *PaymentConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			pc.handleMessage(msg)
		}
		log.Println("[PaymentConsumer] channel closed, stopping consumer")
	}()
}

func (pc *PaymentConsumer) handleMessage(msg amqp.Delivery) {
	var event PaymentEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("[PaymentConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}

	ticket, err := pc.svc.ConfirmHold(context.Background(), event.HoldToken, event.PaymentRef)
	if err != nil {
		if service.IsTransient(err) {
			log.Printf("[PaymentConsumer] transient failure for hold %s, requeueing: %v", event.HoldToken, err)
			msg.Nack(false, true)
			return
		}
		// permanent: the hold expired or was already settled; nothing a
		// redelivery could fix
		log.Printf("[PaymentConsumer] confirm failed for hold %s: %v", event.HoldToken, err)
		msg.Nack(false, false)
		return
	}

	log.Printf("[PaymentConsumer] confirmed ticket %s (seat %s, trip %d)", ticket.BookingRef, ticket.SeatNumber, ticket.TripID)
	msg.Ack(false)
}
