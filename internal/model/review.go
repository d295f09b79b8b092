package model

import "time"

// Review is a player's rating of a hall after a checked-in appointment.
// Each appointment can carry at most one review.
type Review struct {
    ID            uint64    `json:"id"`             // reviews.id
    HallID        uint64    `json:"hall_id"`        // reviews.hall_id
    AppointmentID uint64    `json:"appointment_id"` // reviews.appointment_id (unique)
    UserID        uint64    `json:"user_id"`        // reviews.user_id
    Rating        int       `json:"rating"`         // reviews.rating 1..5
    Comment       string    `json:"comment"`        // reviews.comment
    CreatedAt     time.Time `json:"created_at"`     // reviews.created_at
}

// HallReview is a review joined with its hall name, used for the
// player and owner review listings.
type HallReview struct {
    Review
    HallName string `json:"hall_name"`
}
