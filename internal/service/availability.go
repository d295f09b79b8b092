package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-hall-booking/internal/auth"
	"github.com/iliyamo/sports-hall-booking/internal/model"
	"github.com/iliyamo/sports-hall-booking/internal/slot"
)

// AvailabilityService manages the opening windows of halls.
type AvailabilityService struct {
	halls   HallStore
	windows AvailabilityStore
	log     logrus.FieldLogger
	loc     *time.Location
}

func NewAvailabilityService(halls HallStore, windows AvailabilityStore, log logrus.FieldLogger, loc *time.Location) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{halls: halls, windows: windows, log: log, loc: loc}
}

// Create adds one window to a hall owned by the caller.  A window that
// overlaps an existing one is refused with ErrSlotUnavailable.
func (s *AvailabilityService) Create(ctx context.Context, caller auth.Identity, hallID uint64, start, end time.Time) (*model.Availability, error) {
	w := slot.New(start, end)
	if !w.Valid() {
		return nil, fail(ErrInvalidInput, "end must be after start")
	}
	if err := s.ownHall(ctx, caller, hallID); err != nil {
		return nil, err
	}
	created, rejected, err := s.windows.CreateBatch(ctx, hallID, []slot.Interval{w})
	if err != nil {
		return nil, notFound(err, "hall", hallID)
	}
	if len(rejected) > 0 || len(created) == 0 {
		return nil, fail(ErrSlotUnavailable, "window overlaps an existing availability")
	}
	return &created[0], nil
}

// BulkRequest describes a weekly availability pattern over a date range.
// Dates are YYYY-MM-DD and times HH:MM, both in the hall zone.  Days uses
// Monday=0 through Sunday=6.
type BulkRequest struct {
	HallID    uint64
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
	Days      []int
}

// BulkResult reports how many windows were created and which dates were
// skipped because they overlapped existing windows.
type BulkResult struct {
	TotalCreated int                  `json:"total_created"`
	Created      []model.Availability `json:"created"`
	Errors       []string             `json:"errors"`
}

// BulkCreate expands the request into one window per matching date and
// inserts them in a single transaction.  A malformed request fails as a
// whole; overlapping dates are skipped and reported.
func (s *AvailabilityService) BulkCreate(ctx context.Context, caller auth.Identity, req BulkRequest) (*BulkResult, error) {
	rule, err := s.parseRule(req)
	if err != nil {
		return nil, fail(ErrInvalidInput, "%v", err)
	}
	windows, err := rule.Expand(s.loc)
	if err != nil {
		return nil, fail(ErrInvalidInput, "%v", err)
	}
	if err := s.ownHall(ctx, caller, req.HallID); err != nil {
		return nil, err
	}

	res := &BulkResult{Created: []model.Availability{}, Errors: []string{}}
	if len(windows) == 0 {
		return res, nil
	}
	created, rejected, err := s.windows.CreateBatch(ctx, req.HallID, windows)
	if err != nil {
		return nil, notFound(err, "hall", req.HallID)
	}
	for _, w := range rejected {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: overlaps an existing availability", w.Start.In(s.loc).Format(slot.DateLayout)))
	}
	res.Created = append(res.Created, created...)
	res.TotalCreated = len(created)

	s.log.WithFields(logrus.Fields{
		"hall_id": req.HallID,
		"created": res.TotalCreated,
		"skipped": len(rejected),
	}).Info("bulk availability created")
	return res, nil
}

func (s *AvailabilityService) parseRule(req BulkRequest) (slot.WeeklyRule, error) {
	from, err := slot.ParseDate(req.StartDate, s.loc)
	if err != nil {
		return slot.WeeklyRule{}, err
	}
	to, err := slot.ParseDate(req.EndDate, s.loc)
	if err != nil {
		return slot.WeeklyRule{}, err
	}
	start, err := slot.ParseClock(req.StartTime)
	if err != nil {
		return slot.WeeklyRule{}, err
	}
	end, err := slot.ParseClock(req.EndTime)
	if err != nil {
		return slot.WeeklyRule{}, err
	}
	return slot.WeeklyRule{From: from, To: to, Start: start, End: end, Days: req.Days}, nil
}

// List returns every window of a hall.
func (s *AvailabilityService) List(ctx context.Context, hallID uint64) ([]model.Availability, error) {
	if _, err := s.halls.GetByID(ctx, hallID); err != nil {
		return nil, notFound(err, "hall", hallID)
	}
	return s.windows.ListByHall(ctx, hallID)
}

// Delete removes a window of a hall owned by the caller.  Appointments
// already inside it are kept.
func (s *AvailabilityService) Delete(ctx context.Context, caller auth.Identity, id uint64) error {
	w, err := s.windows.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "availability", id)
	}
	if err := s.ownHall(ctx, caller, w.HallID); err != nil {
		return err
	}
	if err := s.windows.Delete(ctx, id); err != nil {
		return notFound(err, "availability", id)
	}
	return nil
}

func (s *AvailabilityService) ownHall(ctx context.Context, caller auth.Identity, hallID uint64) error {
	hall, err := s.halls.GetByID(ctx, hallID)
	if err != nil {
		return notFound(err, "hall", hallID)
	}
	if !caller.Is(hall.OwnerID) {
		return fail(ErrForbidden, "not your hall")
	}
	return nil
}
