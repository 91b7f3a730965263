// Package service publishes admission events to RabbitMQ.  Errors are
// logged and returned; the allocation flow treats them as best effort.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
	"github.com/iliyamo/hospital-frontdesk/internal/queue"
)

// Publisher sends events to the admission queue.  It dials per publish,
// which keeps it free of connection state at the cost of a handshake.
type Publisher struct {
	url string
	log zerolog.Logger
	now func() time.Time
}

func NewPublisher(url string, logger zerolog.Logger) *Publisher {
	return &Publisher{url: url, log: logger.With().Str("component", "publisher").Logger(), now: time.Now}
}

// AdmissionCommitted implements allocation.EventPublisher.
func (p *Publisher) AdmissionCommitted(ctx context.Context, a model.Admission, occupied int) error {
	return p.publish(ctx, queue.TypeAdmissionCommitted, AdmissionCommittedEvent(a, occupied))
}

// BedReleased implements allocation.EventPublisher.
func (p *Publisher) BedReleased(ctx context.Context, roomID uint64, occupied int, admissionID string) error {
	return p.publish(ctx, queue.TypeBedReleased, queue.BedReleasedEvent{
		RoomID:      roomID,
		AdmissionID: admissionID,
		Occupied:    occupied,
		ReleasedAt:  p.now().UTC().Format(time.RFC3339),
	})
}

// AdmissionCommittedEvent flattens a committed admission for the register.
func AdmissionCommittedEvent(a model.Admission, occupied int) queue.AdmissionCommittedEvent {
	return queue.AdmissionCommittedEvent{
		AdmissionID:   a.ID,
		PatientID:     a.PatientID,
		PatientName:   a.Snapshot.Patient.Name,
		DoctorName:    a.Snapshot.Doctor.Name,
		RoomID:        a.RoomID,
		RoomNumber:    a.Snapshot.Room.RoomNumber,
		BedNumber:     a.BedNumber,
		AdmissionType: string(a.Type),
		Deposit:       a.Deposit.StringFixed(2),
		Occupied:      occupied,
		BedCount:      a.Snapshot.Room.BedCount,
		AdmittedAt:    a.AdmittedAt.UTC().Format(time.RFC3339),
	}
}

func encode(typ string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return json.Marshal(queue.Envelope{Type: typ, Payload: p})
}

func (p *Publisher) publish(ctx context.Context, typ string, payload any) error {
	body, err := encode(typ, payload)
	if err != nil {
		return err
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn().Err(err).Str("type", typ).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.QueueName, true, false, false, false, nil); err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Type:         typ,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.QueueName, false, false, pub); err != nil {
		p.log.Warn().Err(err).Str("type", typ).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}
