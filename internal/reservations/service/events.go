package service

import (
	"context"
	"strconv"

	"examseat/pkg/kafka"
	"examseat/pkg/logger"
	"examseat/pkg/model"
)

// Event types published to the reservation events topic.
const (
	EventReservationCreated = "reservation.created"
	EventReservationUpdated = "reservation.updated"
	EventReservationDeleted = "reservation.deleted"
	EventGroupConfirmed     = "reservation.confirmed"
	EventConfirmedDeleted   = "reservation.confirmed_deleted"
)

// Events publishes lifecycle notifications. Publishing is best effort: a
// broker outage must never fail the reservation operation that triggered it.
type Events interface {
	GroupCreated(ctx context.Context, group *model.ReservationGroup)
	GroupUpdated(ctx context.Context, group *model.ReservationGroup)
	GroupDeleted(ctx context.Context, groupID, ownerID int64)
	GroupConfirmed(ctx context.Context, group *model.ReservationGroup)
	ConfirmedGroupDeleted(ctx context.Context, groupID int64)
}

type kafkaEvents struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaEvents(producer *kafka.Producer, source string, log *logger.Logger) Events {
	return &kafkaEvents{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (e *kafkaEvents) publish(ctx context.Context, eventType string, key string, payload any) {
	msg, ok := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource(e.source).
		Build()
	if !ok {
		e.log.Warn("Failed to encode event payload", "event_type", eventType, "key", key)
		return
	}

	if err := e.producer.Publish(ctx, msg); err != nil {
		e.log.Warn("Failed to publish event",
			"event_type", eventType,
			"key", key,
			"error", err,
		)
	}
}

func (e *kafkaEvents) GroupCreated(ctx context.Context, group *model.ReservationGroup) {
	e.publish(ctx, EventReservationCreated, strconv.FormatInt(group.GroupID, 10), group)
}

func (e *kafkaEvents) GroupUpdated(ctx context.Context, group *model.ReservationGroup) {
	e.publish(ctx, EventReservationUpdated, strconv.FormatInt(group.GroupID, 10), group)
}

func (e *kafkaEvents) GroupDeleted(ctx context.Context, groupID, ownerID int64) {
	e.publish(ctx, EventReservationDeleted, strconv.FormatInt(groupID, 10), map[string]any{
		"group_id": groupID,
		"owner_id": ownerID,
	})
}

func (e *kafkaEvents) GroupConfirmed(ctx context.Context, group *model.ReservationGroup) {
	e.publish(ctx, EventGroupConfirmed, strconv.FormatInt(group.GroupID, 10), group)
}

func (e *kafkaEvents) ConfirmedGroupDeleted(ctx context.Context, groupID int64) {
	e.publish(ctx, EventConfirmedDeleted, strconv.FormatInt(groupID, 10), map[string]any{
		"group_id": groupID,
	})
}

// NoopEvents is used when no Kafka brokers are configured.
type NoopEvents struct{}

func (NoopEvents) GroupCreated(context.Context, *model.ReservationGroup)   {}
func (NoopEvents) GroupUpdated(context.Context, *model.ReservationGroup)   {}
func (NoopEvents) GroupDeleted(context.Context, int64, int64)              {}
func (NoopEvents) GroupConfirmed(context.Context, *model.ReservationGroup) {}
func (NoopEvents) ConfirmedGroupDeleted(context.Context, int64)            {}
