package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Hall represents a sports hall that players can book by the hour.
// Halls belong to an owner who manages their availability windows and
// approves incoming appointments.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – user ID of the hall owner.
//  Name        – display name of the hall.
//  Address     – street address shown to players.
//  Price       – hourly price with two decimal places.
//  Description – free text about the hall.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Hall struct {
    ID          uint64          `json:"id"`          // halls.id
    OwnerID     uint64          `json:"owner_id"`    // halls.owner_id
    Name        string          `json:"name"`        // halls.name
    Address     string          `json:"address"`     // halls.address
    Price       decimal.Decimal `json:"price"`       // halls.price DECIMAL(8,2)
    Description string          `json:"description"` // halls.description
    CreatedAt   time.Time       `json:"created_at"`  // halls.created_at
    UpdatedAt   time.Time       `json:"updated_at"`  // halls.updated_at
}

// DefaultHallDescription is stored when an owner leaves the description empty.
const DefaultHallDescription = "No description"
