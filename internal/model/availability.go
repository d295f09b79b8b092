package model

import "time"

// Availability is a window of time during which a hall accepts bookings.
// Windows are created and deleted by the owner but never edited in place.
type Availability struct {
    ID        uint64    `json:"id"`         // availabilities.id
    HallID    uint64    `json:"hall_id"`    // availabilities.hall_id
    Start     time.Time `json:"start"`      // availabilities.start_at
    End       time.Time `json:"end"`        // availabilities.end_at
    CreatedAt time.Time `json:"created_at"` // availabilities.created_at
}
