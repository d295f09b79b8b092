// Package events defines the appointment events published to the message
// broker and the publishers that deliver them.  Consumers (notification
// mailers, analytics) subscribe to these events instead of querying the
// primary database.
package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/sports-hall-booking/internal/model"
)

// Event types.
const (
	TypeAppointmentCreated       = "appointment.created"
	TypeAppointmentStatusChanged = "appointment.status_changed"
	TypeAppointmentCheckedIn     = "appointment.checked_in"
)

// AppointmentEvent is published whenever an appointment is created or
// changes state.  ID is unique per event and doubles as the broker
// message ID so consumers can de-duplicate redeliveries.
type AppointmentEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	AppointmentID  uint64    `json:"appointment_id"`
	HallID         uint64    `json:"hall_id"`
	UserID         uint64    `json:"user_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	CheckedIn      bool      `json:"checked_in"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewAppointmentEvent snapshots a into an event of the given type.
func NewAppointmentEvent(typ string, a model.Appointment, previous model.AppointmentStatus, at time.Time) AppointmentEvent {
	return AppointmentEvent{
		ID:             uuid.NewString(),
		Type:           typ,
		AppointmentID:  a.ID,
		HallID:         a.HallID,
		UserID:         a.UserID,
		Status:         string(a.Status),
		PreviousStatus: string(previous),
		CheckedIn:      a.CheckedIn,
		Start:          a.Start.UTC(),
		End:            a.End.UTC(),
		OccurredAt:     at.UTC(),
	}
}

// Key is the partition/routing key: events of one hall stay ordered.
func (e AppointmentEvent) Key() string {
	return "hall-" + strconv.FormatUint(e.HallID, 10)
}
