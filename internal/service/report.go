package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/sports-hall-booking/internal/auth"
	"github.com/iliyamo/sports-hall-booking/internal/model"
)

// MonthStats aggregates one calendar month of an owner's halls.
type MonthStats struct {
	Month                 int             `json:"month"`
	MonthName             string          `json:"month_name"`
	TotalReservations     int             `json:"total_reservations"`
	ApprovedReservations  int             `json:"approved_reservations"`
	CheckedInReservations int             `json:"checked_in_reservations"`
	Revenue               decimal.Decimal `json:"revenue"`
	RealizedRevenue       decimal.Decimal `json:"realized_revenue"`
	CompletionRate        float64         `json:"completion_rate"`
	RealizationRate       float64         `json:"realization_rate"`
	TopHall               string          `json:"top_hall"`
}

// YearTotals sums the months of a report.
type YearTotals struct {
	TotalReservations      int             `json:"total_reservations"`
	ApprovedReservations   int             `json:"approved_reservations"`
	CheckedInReservations  int             `json:"checked_in_reservations"`
	Revenue                decimal.Decimal `json:"revenue"`
	RealizedRevenue        decimal.Decimal `json:"realized_revenue"`
	AverageCompletionRate  float64         `json:"average_completion_rate"`
	AverageRealizationRate float64         `json:"average_realization_rate"`
}

// MonthlyReport is the owner's yearly overview.
type MonthlyReport struct {
	Year   int          `json:"year"`
	Months []MonthStats `json:"monthly_stats"`
	Totals YearTotals   `json:"yearly_totals"`
}

// ReportService builds owner statistics.
type ReportService struct {
	appointments AppointmentStore
	loc          *time.Location
	clock        Clock
}

func NewReportService(appointments AppointmentStore, loc *time.Location, clock Clock) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{appointments: appointments, loc: loc, clock: clock}
}

// MonthlyStats reports the caller's halls for a year.  Year 0 means the
// current year in the hall zone.
func (s *ReportService) MonthlyStats(ctx context.Context, caller auth.Identity, year int) (*MonthlyReport, error) {
	if !caller.IsOwner() {
		return nil, fail(ErrForbidden, "owner role required")
	}
	if year == 0 {
		year = s.clock.now().In(s.loc).Year()
	}
	if year < 2000 || year > 2100 {
		return nil, fail(ErrInvalidInput, "year %d out of range", year)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	list, err := s.appointments.ListByOwnerBetween(ctx, caller.UserID, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	return BuildMonthlyReport(year, list, s.loc), nil
}

// BuildMonthlyReport buckets appointments by their start month in loc.
// Revenue counts approved appointments at the hall price, realized
// revenue only the checked-in ones.  Appointments outside year are
// ignored.
func BuildMonthlyReport(year int, list []model.HallAppointment, loc *time.Location) *MonthlyReport {
	rep := &MonthlyReport{Year: year, Months: make([]MonthStats, 12)}
	perHall := make([]map[string]int, 12)
	for i := range rep.Months {
		m := time.Month(i + 1)
		rep.Months[i] = MonthStats{Month: int(m), MonthName: m.String(), Revenue: decimal.Zero, RealizedRevenue: decimal.Zero}
		perHall[i] = map[string]int{}
	}

	for _, a := range list {
		local := a.Start.In(loc)
		if local.Year() != year {
			continue
		}
		i := int(local.Month()) - 1
		ms := &rep.Months[i]
		ms.TotalReservations++
		perHall[i][a.HallName]++
		if a.Status != model.StatusApproved {
			continue
		}
		ms.ApprovedReservations++
		ms.Revenue = ms.Revenue.Add(a.HallPrice)
		if a.CheckedIn {
			ms.CheckedInReservations++
			ms.RealizedRevenue = ms.RealizedRevenue.Add(a.HallPrice)
		}
	}

	t := &rep.Totals
	t.Revenue, t.RealizedRevenue = decimal.Zero, decimal.Zero
	for i := range rep.Months {
		ms := &rep.Months[i]
		ms.CompletionRate = percent(ms.ApprovedReservations, ms.TotalReservations)
		ms.RealizationRate = percent(ms.CheckedInReservations, ms.ApprovedReservations)
		ms.TopHall = topHall(perHall[i])

		t.TotalReservations += ms.TotalReservations
		t.ApprovedReservations += ms.ApprovedReservations
		t.CheckedInReservations += ms.CheckedInReservations
		t.Revenue = t.Revenue.Add(ms.Revenue)
		t.RealizedRevenue = t.RealizedRevenue.Add(ms.RealizedRevenue)
	}
	t.AverageCompletionRate = percent(t.ApprovedReservations, t.TotalReservations)
	t.AverageRealizationRate = percent(t.CheckedInReservations, t.ApprovedReservations)
	return rep
}

// percent is part/whole*100 rounded to one decimal, 0 for an empty whole.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(whole)) / 10
}

// topHall picks the hall with the most reservations, ties broken by name.
func topHall(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
