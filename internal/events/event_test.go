package events

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-hall-booking/internal/model"
)

func TestNewAppointmentEvent(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	start := time.Date(2025, 10, 10, 10, 0, 0, 0, loc)
	a := model.Appointment{ID: 5, HallID: 12, UserID: 3, Start: start, End: start.Add(time.Hour), Status: model.StatusApproved}

	ev := NewAppointmentEvent(TypeAppointmentStatusChanged, a, model.StatusPending, start)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "approved", ev.Status)
	assert.Equal(t, "pending", ev.PreviousStatus)
	assert.Equal(t, time.UTC, ev.Start.Location())
	assert.Equal(t, "hall-12", ev.Key())

	other := NewAppointmentEvent(TypeAppointmentStatusChanged, a, model.StatusPending, start)
	assert.NotEqual(t, ev.ID, other.ID)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"appointment.status_changed"`)
}

func TestNewFallsBackToNop(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	p := New(Options{Broker: "none"}, log)
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), AppointmentEvent{}))

	p = New(Options{Broker: "kafka"}, log)
	assert.IsType(t, NopPublisher{}, p)

	p = New(Options{Broker: "kafka", KafkaBrokers: []string{"localhost:9092"}}, log)
	assert.IsType(t, &KafkaPublisher{}, p)
	assert.NoError(t, p.Close())
}
