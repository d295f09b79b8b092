package service

import (
	"context"
	"time"

	"github.com/iliyamo/sports-hall-booking/internal/model"
	"github.com/iliyamo/sports-hall-booking/internal/repository"
	"github.com/iliyamo/sports-hall-booking/internal/slot"
)

// HallStore is the hall lookup the services need.
type HallStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Hall, error)
}

// AvailabilityStore reads and writes availability windows.
type AvailabilityStore interface {
	ListOverlapping(ctx context.Context, hallID uint64, from, to time.Time) ([]model.Availability, error)
	ListByHall(ctx context.Context, hallID uint64) ([]model.Availability, error)
	GetByID(ctx context.Context, id uint64) (*model.Availability, error)
	CreateBatch(ctx context.Context, hallID uint64, windows []slot.Interval) ([]model.Availability, []slot.Interval, error)
	Delete(ctx context.Context, id uint64) error
}

// AppointmentStore reads appointments and performs the atomic booking
// and compare-and-set status updates.
type AppointmentStore interface {
	CreateIfFree(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id uint64) (*model.Appointment, error)
	ListBlocking(ctx context.Context, hallID uint64, from, to time.Time) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.AppointmentStatus) error
	MarkCheckedIn(ctx context.Context, id uint64) error
	ListByUser(ctx context.Context, userID uint64) ([]model.HallAppointment, error)
	ListByHallAndStatus(ctx context.Context, hallID uint64, status model.AppointmentStatus) ([]model.Appointment, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.HallAppointment, error)
	ListByOwnerBetween(ctx context.Context, ownerID uint64, from, to time.Time) ([]model.HallAppointment, error)
	ListReviewable(ctx context.Context, userID uint64) ([]model.HallAppointment, error)
}

// ReviewStore persists reviews.
type ReviewStore interface {
	Create(ctx context.Context, r *model.Review) error
	ListByHall(ctx context.Context, hallID uint64) ([]model.HallReview, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.HallReview, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.HallReview, error)
}

// SlotLocker optionally sheds duplicate in-flight bookings.
type SlotLocker interface {
	Acquire(ctx context.Context, hallID uint64, start time.Time) (release func(), acquired bool, err error)
}

var (
	_ HallStore         = (*repository.HallRepo)(nil)
	_ AvailabilityStore = (*repository.AvailabilityRepo)(nil)
	_ AppointmentStore  = (*repository.AppointmentRepo)(nil)
	_ ReviewStore       = (*repository.ReviewRepo)(nil)
)

// Clock returns the current time.  Services take one so tests can pin it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

func intervalsOfWindows(ws []model.Availability) []slot.Interval {
	out := make([]slot.Interval, 0, len(ws))
	for _, w := range ws {
		out = append(out, slot.Interval{Start: w.Start, End: w.End})
	}
	return out
}

func intervalsOfAppointments(as []model.Appointment) []slot.Interval {
	out := make([]slot.Interval, 0, len(as))
	for _, a := range as {
		if a.Status.Blocking() {
			out = append(out, slot.Interval{Start: a.Start, End: a.End})
		}
	}
	return out
}
