package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/pkg/logger"
)

func TestBuildMessage_ClaveYCuerpo(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	change := entity.LevelChange{
		Key:         entity.LevelKey{ProductID: "P1", LocationID: "W1"},
		Kind:        entity.MovementADJUST,
		Quantity:    50,
		LastEventID: 3,
		ChangedAt:   at,
	}

	msg, err := buildMessage(change)
	require.NoError(t, err)
	assert.Equal(t, "P1:W1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, EventTypeLevelChanged, string(msg.Headers[0].Value))

	var ev LevelChangedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, string(msg.Headers[1].Value), ev.ID)
	assert.Equal(t, "W1", ev.WarehouseID)
	assert.Equal(t, "ADJUST", ev.MovementType)
	assert.Equal(t, int64(50), ev.Quantity)
	assert.Equal(t, int64(3), ev.LastEventID)
}

func TestBuildMessage_IDsUnicos(t *testing.T) {
	a, err := buildMessage(entity.LevelChange{})
	require.NoError(t, err)
	b, err := buildMessage(entity.LevelChange{})
	require.NoError(t, err)
	assert.NotEqual(t, a.Headers[1].Value, b.Headers[1].Value)
}

func TestLogNotifier_RegistraCambio(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logger.New(logger.Config{Env: "production", Level: "info", Output: &buf}))

	err := n.LevelChanged(context.Background(), entity.LevelChange{
		Key:      entity.LevelKey{ProductID: "P1", LocationID: "W1"},
		Kind:     entity.MovementIN,
		Quantity: 10,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"product_id":"P1"`)
	assert.Contains(t, buf.String(), `"component":"level_changed"`)
}
