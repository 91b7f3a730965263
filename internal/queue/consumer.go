package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// RegisterFile is the ward register written under the log directory.
const RegisterFile = "admissions.log"

// StartAdmissionConsumer connects to RabbitMQ, declares the admission
// queue (durable) and appends one line per event to <logDir>/admissions.log.
// It reconnects with backoff until ctx is cancelled, then returns
// ctx.Err().  Messages that cannot be handled are rejected without requeue
// so a bad payload cannot spin the loop.
func StartAdmissionConsumer(ctx context.Context, url, logDir string, logger zerolog.Logger) error {
	log := logger.With().Str("component", "admission-consumer").Logger()
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logDir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(d.Body, logDir); err != nil {
				log.Error().Err(err).Msg("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte, logDir string) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, err := registerLine(env)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, RegisterFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open register: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write register: %w", err)
	}
	return nil
}

func registerLine(env Envelope) (string, error) {
	switch env.Type {
	case TypeAdmissionCommitted:
		var ev AdmissionCommittedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] Admission committed | admission_id=%s | patient_id=%d | patient=%q | doctor=%q | room=%q | bed=%d | type=%s | deposit=%s | occupied=%d/%d\n",
			ev.AdmittedAt, ev.AdmissionID, ev.PatientID, ev.PatientName, ev.DoctorName, ev.RoomNumber,
			ev.BedNumber, ev.AdmissionType, ev.Deposit, ev.Occupied, ev.BedCount), nil
	case TypeBedReleased:
		var ev BedReleasedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return fmt.Sprintf("[%s] Bed released | room_id=%d | admission_id=%s | occupied=%d\n",
			ev.ReleasedAt, ev.RoomID, ev.AdmissionID, ev.Occupied), nil
	}
	return "", fmt.Errorf("unknown event type %q", env.Type)
}
