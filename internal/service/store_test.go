package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/sports-hall-booking/internal/events"
	"github.com/iliyamo/sports-hall-booking/internal/model"
	"github.com/iliyamo/sports-hall-booking/internal/repository"
	"github.com/iliyamo/sports-hall-booking/internal/slot"
)

// memStore is an in-memory stand-in for the MySQL repositories.  One
// mutex plays the role of the hall row lock.
type memStore struct {
	mu           sync.Mutex
	halls        map[uint64]*model.Hall
	windows      []model.Availability
	appointments []*model.Appointment
	reviews      []model.Review
	nextID       uint64
}

func newMemStore() *memStore {
	return &memStore{halls: map[uint64]*model.Hall{}}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addHall(id, owner uint64, name string, price string) {
	m.halls[id] = &model.Hall{ID: id, OwnerID: owner, Name: name, Price: decimal.RequireFromString(price)}
}

func (m *memStore) addWindow(hallID uint64, start, end time.Time) {
	m.windows = append(m.windows, model.Availability{ID: m.id(), HallID: hallID, Start: start, End: end})
}

func (m *memStore) addAppointment(a model.Appointment) *model.Appointment {
	a.ID = m.id()
	m.appointments = append(m.appointments, &a)
	return &a
}

func (m *memStore) appointment(id uint64) model.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.ID == id {
			return *a
		}
	}
	return model.Appointment{}
}

// hallStore

type memHalls struct{ *memStore }

func (h memHalls) GetByID(_ context.Context, id uint64) (*model.Hall, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hall, ok := h.halls[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *hall
	return &cp, nil
}

// availabilityStore

type memWindows struct{ *memStore }

func (w memWindows) ListOverlapping(_ context.Context, hallID uint64, from, to time.Time) ([]model.Availability, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := []model.Availability{}
	for _, a := range w.windows {
		if a.HallID == hallID && a.Start.Before(to) && a.End.After(from) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (w memWindows) ListByHall(_ context.Context, hallID uint64) ([]model.Availability, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := []model.Availability{}
	for _, a := range w.windows {
		if a.HallID == hallID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (w memWindows) GetByID(_ context.Context, id uint64) (*model.Availability, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range w.windows {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (w memWindows) CreateBatch(_ context.Context, hallID uint64, ws []slot.Interval) ([]model.Availability, []slot.Interval, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.halls[hallID]; !ok {
		return nil, nil, repository.ErrNotFound
	}
	var created []model.Availability
	var rejected []slot.Interval
	for _, iv := range ws {
		clash := false
		for _, a := range w.windows {
			if a.HallID == hallID && slot.Overlaps(iv, slot.Interval{Start: a.Start, End: a.End}) {
				clash = true
				break
			}
		}
		if clash {
			rejected = append(rejected, iv)
			continue
		}
		a := model.Availability{ID: w.id(), HallID: hallID, Start: iv.Start, End: iv.End}
		w.windows = append(w.windows, a)
		created = append(created, a)
	}
	return created, rejected, nil
}

func (w memWindows) Delete(_ context.Context, id uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, a := range w.windows {
		if a.ID == id {
			w.windows = append(w.windows[:i], w.windows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// appointmentStore

type memAppointments struct{ *memStore }

func (s memAppointments) CreateIfFree(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.halls[a.HallID]; !ok {
		return repository.ErrNotFound
	}
	want := slot.Interval{Start: a.Start, End: a.End}
	inside := false
	for _, w := range s.windows {
		if w.HallID == a.HallID && (slot.Interval{Start: w.Start, End: w.End}).Contains(want) {
			inside = true
			break
		}
	}
	if !inside {
		return repository.ErrOutsideAvailability
	}
	for _, b := range s.appointments {
		if b.HallID == a.HallID && b.Status.Blocking() && slot.Overlaps(want, slot.Interval{Start: b.Start, End: b.End}) {
			return repository.ErrSlotTaken
		}
	}
	a.ID = s.id()
	cp := *a
	s.appointments = append(s.appointments, &cp)
	return nil
}

func (s memAppointments) GetByID(_ context.Context, id uint64) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appointments {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memAppointments) ListBlocking(_ context.Context, hallID uint64, from, to time.Time) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range s.appointments {
		if a.HallID == hallID && a.Status.Blocking() && a.Start.Before(to) && a.End.After(from) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s memAppointments) UpdateStatus(_ context.Context, id uint64, from, to model.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appointments {
		if a.ID == id && a.Status == from && !a.CheckedIn {
			a.Status = to
			return nil
		}
	}
	return repository.ErrStatusChanged
}

func (s memAppointments) MarkCheckedIn(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appointments {
		if a.ID == id && a.Status == model.StatusApproved && !a.CheckedIn {
			a.CheckedIn = true
			return nil
		}
	}
	return repository.ErrStatusChanged
}

func (s memAppointments) joined(keep func(a *model.Appointment, h *model.Hall) bool) []model.HallAppointment {
	out := []model.HallAppointment{}
	for _, a := range s.appointments {
		h := s.halls[a.HallID]
		if keep(a, h) {
			out = append(out, model.HallAppointment{Appointment: *a, HallName: h.Name, HallPrice: h.Price})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (s memAppointments) ListByUser(_ context.Context, userID uint64) ([]model.HallAppointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined(func(a *model.Appointment, _ *model.Hall) bool { return a.UserID == userID }), nil
}

func (s memAppointments) ListByHallAndStatus(_ context.Context, hallID uint64, status model.AppointmentStatus) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range s.appointments {
		if a.HallID == hallID && a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s memAppointments) ListByOwner(_ context.Context, ownerID uint64) ([]model.HallAppointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined(func(_ *model.Appointment, h *model.Hall) bool { return h.OwnerID == ownerID }), nil
}

func (s memAppointments) ListByOwnerBetween(_ context.Context, ownerID uint64, from, to time.Time) ([]model.HallAppointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined(func(a *model.Appointment, h *model.Hall) bool {
		return h.OwnerID == ownerID && !a.Start.Before(from) && a.Start.Before(to)
	}), nil
}

func (s memAppointments) ListReviewable(_ context.Context, userID uint64) ([]model.HallAppointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviewed := map[uint64]bool{}
	for _, r := range s.reviews {
		reviewed[r.AppointmentID] = true
	}
	return s.joined(func(a *model.Appointment, _ *model.Hall) bool {
		return a.UserID == userID && a.CheckedIn && !reviewed[a.ID]
	}), nil
}

// reviewStore

type memReviews struct{ *memStore }

func (r memReviews) Create(_ context.Context, rv *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.reviews {
		if x.AppointmentID == rv.AppointmentID {
			return repository.ErrDuplicate
		}
	}
	rv.ID = r.id()
	r.reviews = append(r.reviews, *rv)
	return nil
}

func (r memReviews) filter(keep func(rv model.Review, h *model.Hall) bool) []model.HallReview {
	out := []model.HallReview{}
	for _, rv := range r.reviews {
		h := r.halls[rv.HallID]
		if keep(rv, h) {
			out = append(out, model.HallReview{Review: rv, HallName: h.Name})
		}
	}
	return out
}

func (r memReviews) ListByHall(_ context.Context, hallID uint64) ([]model.HallReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(rv model.Review, _ *model.Hall) bool { return rv.HallID == hallID }), nil
}

func (r memReviews) ListByUser(_ context.Context, userID uint64) ([]model.HallReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(rv model.Review, _ *model.Hall) bool { return rv.UserID == userID }), nil
}

func (r memReviews) ListByOwner(_ context.Context, ownerID uint64) ([]model.HallReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(_ model.Review, h *model.Hall) bool { return h.OwnerID == ownerID }), nil
}

// mockPublisher records published events.
type mockPublisher struct {
	mock.Mock
}

func (p *mockPublisher) Publish(ctx context.Context, ev events.AppointmentEvent) error {
	return p.Called(ctx, ev).Error(0)
}

func (p *mockPublisher) Close() error { return nil }

// stubLocker grants or refuses every lock.
type stubLocker struct {
	grant    bool
	err      error
	released int
	mu       sync.Mutex
}

func (l *stubLocker) Acquire(context.Context, uint64, time.Time) (func(), bool, error) {
	if l.err != nil || !l.grant {
		return func() {}, false, l.err
	}
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, true, nil
}
