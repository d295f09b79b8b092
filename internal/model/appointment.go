package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
    StatusPending   AppointmentStatus = "pending"
    StatusApproved  AppointmentStatus = "approved"
    StatusRejected  AppointmentStatus = "rejected"
    StatusCancelled AppointmentStatus = "cancelled"
)

// transitions lists every allowed status change.  Rejected and cancelled
// have no outgoing edges.
var transitions = map[AppointmentStatus][]AppointmentStatus{
    StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
    StatusApproved: {StatusCancelled},
}

// CanTransition reports whether an appointment may move from s to next.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
    for _, t := range transitions[s] {
        if t == next {
            return true
        }
    }
    return false
}

// Blocking reports whether an appointment in this status occupies its
// time range.  Pending appointments block just like approved ones.
func (s AppointmentStatus) Blocking() bool {
    return s == StatusPending || s == StatusApproved
}

// Terminal reports whether no further transition is possible.
func (s AppointmentStatus) Terminal() bool {
    return len(transitions[s]) == 0
}

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
    switch s {
    case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
        return true
    }
    return false
}

// BlockingStatuses returns the statuses that occupy a hall's time range.
func BlockingStatuses() []AppointmentStatus {
    return []AppointmentStatus{StatusPending, StatusApproved}
}

// Appointment is a player's reservation of a hall for [Start, End).
//
// Fields:
//  ID        – primary key identifier.
//  HallID    – hall being booked.
//  UserID    – player who made the booking.
//  Start/End – reserved range, stored in UTC.
//  Status    – lifecycle state, see AppointmentStatus.
//  CheckedIn – one-way flag set when the booking was realized.
type Appointment struct {
    ID        uint64            `json:"id"`         // appointments.id
    HallID    uint64            `json:"hall_id"`    // appointments.hall_id
    UserID    uint64            `json:"user_id"`    // appointments.user_id
    Start     time.Time         `json:"start"`      // appointments.start_at
    End       time.Time         `json:"end"`        // appointments.end_at
    Status    AppointmentStatus `json:"status"`     // appointments.status
    CheckedIn bool              `json:"checked_in"` // appointments.checked_in
    CreatedAt time.Time         `json:"created_at"` // appointments.created_at
    UpdatedAt time.Time         `json:"updated_at"` // appointments.updated_at
}

// HallAppointment joins an appointment with the hall data needed for
// owner listings and reports.
type HallAppointment struct {
    Appointment
    HallName  string          `json:"hall_name"`
    HallPrice decimal.Decimal `json:"hall_price"`
}
