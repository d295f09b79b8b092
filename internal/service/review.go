package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-hall-booking/internal/auth"
	"github.com/iliyamo/sports-hall-booking/internal/model"
	"github.com/iliyamo/sports-hall-booking/internal/repository"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

// ReviewService lets players rate halls they actually played in.
type ReviewService struct {
	halls        HallStore
	appointments AppointmentStore
	reviews      ReviewStore
	log          logrus.FieldLogger
	clock        Clock
}

func NewReviewService(halls HallStore, appointments AppointmentStore, reviews ReviewStore, log logrus.FieldLogger, clock Clock) *ReviewService {
	return &ReviewService{halls: halls, appointments: appointments, reviews: reviews, log: log, clock: clock}
}

// ReviewInput is a new review of one appointment.
type ReviewInput struct {
	AppointmentID uint64
	Rating        int
	Comment       string
}

// Create stores a review.  Only the booking user of a checked-in
// appointment may review it, once.
func (s *ReviewService) Create(ctx context.Context, caller auth.Identity, in ReviewInput) (*model.Review, error) {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return nil, fail(ErrInvalidInput, "rating must be between %d and %d", MinRating, MaxRating)
	}
	comment := strings.TrimSpace(in.Comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, fail(ErrInvalidInput, "comment is longer than %d characters", MaxCommentLength)
	}
	a, err := s.appointments.GetByID(ctx, in.AppointmentID)
	if err != nil {
		return nil, notFound(err, "appointment", in.AppointmentID)
	}
	if !caller.Is(a.UserID) {
		return nil, fail(ErrForbidden, "only the booking user can review")
	}
	if !a.CheckedIn {
		return nil, fail(ErrInvalidState, "only checked-in appointments can be reviewed")
	}

	rv := &model.Review{
		HallID:        a.HallID,
		AppointmentID: a.ID,
		UserID:        caller.UserID,
		Rating:        in.Rating,
		Comment:       comment,
		CreatedAt:     s.clock.now().UTC(),
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fail(ErrInvalidState, "appointment %d is already reviewed", a.ID)
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"review_id": rv.ID, "hall_id": rv.HallID, "rating": rv.Rating}).Info("review created")
	return rv, nil
}

// HallReviews is the public review listing of a hall.
type HallReviews struct {
	HallID        uint64             `json:"hall_id"`
	AverageRating float64            `json:"average_rating"`
	TotalReviews  int                `json:"total_reviews"`
	Reviews       []model.HallReview `json:"reviews"`
}

// ForHall lists the reviews of a hall with their average rounded to one
// decimal.  A hall without reviews averages 0.
func (s *ReviewService) ForHall(ctx context.Context, hallID uint64) (*HallReviews, error) {
	if _, err := s.halls.GetByID(ctx, hallID); err != nil {
		return nil, notFound(err, "hall", hallID)
	}
	list, err := s.reviews.ListByHall(ctx, hallID)
	if err != nil {
		return nil, err
	}
	out := &HallReviews{HallID: hallID, TotalReviews: len(list), Reviews: list}
	if len(list) > 0 {
		sum := 0
		for _, r := range list {
			sum += r.Rating
		}
		out.AverageRating = math.Round(float64(sum)/float64(len(list))*10) / 10
	}
	return out, nil
}

// Mine lists the caller's reviews.
func (s *ReviewService) Mine(ctx context.Context, caller auth.Identity) ([]model.HallReview, error) {
	if !caller.Authenticated() {
		return nil, fail(ErrForbidden, "login required")
	}
	return s.reviews.ListByUser(ctx, caller.UserID)
}

// Reviewable lists the caller's checked-in appointments still lacking a review.
func (s *ReviewService) Reviewable(ctx context.Context, caller auth.Identity) ([]model.HallAppointment, error) {
	if !caller.Authenticated() {
		return nil, fail(ErrForbidden, "login required")
	}
	return s.appointments.ListReviewable(ctx, caller.UserID)
}

// ForOwner lists reviews across the caller's halls.
func (s *ReviewService) ForOwner(ctx context.Context, caller auth.Identity) ([]model.HallReview, error) {
	if !caller.IsOwner() {
		return nil, fail(ErrForbidden, "owner role required")
	}
	return s.reviews.ListByOwner(ctx, caller.UserID)
}
