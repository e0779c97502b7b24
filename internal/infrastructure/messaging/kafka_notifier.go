package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// EventTypeLevelChanged tipo de evento publicado tras cada movimiento admitido.
const EventTypeLevelChanged = "inventory.level_changed"

var _ inventory.LevelNotifier = (*KafkaNotifier)(nil)

// LevelChangedEvent mensaje "cambió el nivel de la clave K".
type LevelChangedEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	ProductID    string    `json:"product_id"`
	WarehouseID  string    `json:"warehouse_id"`
	MovementType string    `json:"movement_type"`
	Quantity     int64     `json:"quantity"`
	LastEventID  int64     `json:"last_event_id"`
	ChangedAt    time.Time `json:"changed_at"`
}

// KafkaNotifier publica los cambios de nivel en un tópico Kafka; la clave del mensaje es la clave
// de la proyección, así los cambios de una misma clave caen en la misma partición y en orden.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier construye el productor.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}
	return &KafkaNotifier{writer: writer}
}

// LevelChanged escribe el mensaje con un timeout propio de 5s.
func (n *KafkaNotifier) LevelChanged(ctx context.Context, change entity.LevelChange) error {
	msg, err := buildMessage(change)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write level change to kafka: %w", err)
	}
	return nil
}

// Close vacía y cierra el writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func buildMessage(change entity.LevelChange) (kafka.Message, error) {
	event := LevelChangedEvent{
		ID:           uuid.New().String(),
		Type:         EventTypeLevelChanged,
		ProductID:    change.Key.ProductID,
		WarehouseID:  change.Key.LocationID,
		MovementType: string(change.Kind),
		Quantity:     change.Quantity,
		LastEventID:  change.LastEventID,
		ChangedAt:    change.ChangedAt,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal level change: %w", err)
	}
	return kafka.Message{
		Key:   []byte(change.Key.String()),
		Value: value,
		Time:  change.ChangedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventTypeLevelChanged)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	}, nil
}
