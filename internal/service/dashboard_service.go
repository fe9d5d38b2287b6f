package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/facility-admin-api/internal/dto"
	"github.com/noah-isme/facility-admin-api/internal/models"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

const maxDashboardRangeDays = 366

type dashboardRepository interface {
	Counts(ctx context.Context) (models.DashboardCounts, error)
	StatusCounts(ctx context.Context, from, to time.Time) ([]models.StatusCount, error)
	DailyCounts(ctx context.Context, from, to time.Time, tz string) ([]models.DailyCount, error)
	MonthlyCounts(ctx context.Context, year int, tz string) ([]models.MonthlyCount, error)
}

type technicianLister interface {
	List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error)
}

type categoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

type adminLister interface {
	ListSummaries(ctx context.Context) ([]models.AdminSummary, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	DefaultRangeDays int
	Location         *time.Location
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo        dashboardRepository
	Rooms       roomLister
	Technicians technicianLister
	Categories  categoryLister
	Admins      adminLister
	Cache       *CacheService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// DashboardService aggregates work order and booking figures for the dashboard.
type DashboardService struct {
	repo        dashboardRepository
	rooms       roomLister
	technicians technicianLister
	categories  categoryLister
	admins      adminLister
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.DefaultRangeDays <= 0 {
		cfg.DefaultRangeDays = 7
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:        params.Repo,
		rooms:       params.Rooms,
		technicians: params.Technicians,
		categories:  params.Categories,
		admins:      params.Admins,
		cache:       params.Cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Stats returns the all-time stat cards. The bool reports a cache hit.
func (s *DashboardService) Stats(ctx context.Context) (*dto.DashboardStats, bool, error) {
	const key = CachePrefixDashboard + "stats"
	var cached dto.DashboardStats
	if s.fromCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard counts")
	}
	stats := &dto.DashboardStats{
		TotalWorkOrders:     counts.WorkOrders,
		CompletedWorkOrders: counts.Completed,
		Technicians:         counts.Technicians,
		Bookings:            counts.Bookings,
		CompletionRate:      completionRate(counts.Completed, counts.WorkOrders),
	}
	s.toCache(ctx, key, stats)
	return stats, false, nil
}

// Range aggregates work orders created between start and end inclusive
// (YYYY-MM-DD in the facility zone). Empty bounds default to the trailing
// DefaultRangeDays ending today.
func (s *DashboardService) Range(ctx context.Context, start, end string) (*dto.DashboardRange, bool, error) {
	from, to, err := s.resolveRange(start, end)
	if err != nil {
		return nil, false, err
	}
	startLabel := from.Format("2006-01-02")
	endLabel := to.AddDate(0, 0, -1).Format("2006-01-02")
	key := fmt.Sprintf("%srange:%s:%s", CachePrefixDashboard, startLabel, endLabel)

	var cached dto.DashboardRange
	if s.fromCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	statusRows, err := s.repo.StatusCounts(ctx, from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status distribution")
	}
	dailyRows, err := s.repo.DailyCounts(ctx, from, to, s.cfg.Location.String())
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load daily counts")
	}

	statuses := normaliseStatusCounts(statusRows)
	out := &dto.DashboardRange{
		Start:    startLabel,
		End:      endLabel,
		Statuses: statuses,
		Daily:    fillDays(dailyRows, from, to),
	}
	for _, sc := range statuses {
		out.Total += sc.Count
		if sc.Status == models.StatusSelesai {
			out.Completed = sc.Count
		}
	}
	out.CompletionRate = completionRate(out.Completed, out.Total)

	s.toCache(ctx, key, out)
	return out, false, nil
}

// Monthly returns twelve monthly creation counts for year (0 = current year).
func (s *DashboardService) Monthly(ctx context.Context, year int) (*dto.DashboardMonthly, bool, error) {
	if year == 0 {
		year = s.now().In(s.cfg.Location).Year()
	}
	if year < 2000 || year > 9999 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}
	key := fmt.Sprintf("%smonthly:%d", CachePrefixDashboard, year)

	var cached dto.DashboardMonthly
	if s.fromCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	rows, err := s.repo.MonthlyCounts(ctx, year, s.cfg.Location.String())
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly counts")
	}
	out := &dto.DashboardMonthly{Year: year, Months: make([]models.MonthlyCount, 12)}
	for i := range out.Months {
		out.Months[i].Month = i + 1
	}
	for _, row := range rows {
		if row.Month >= 1 && row.Month <= 12 {
			out.Months[row.Month-1].Count = row.Count
		}
	}

	s.toCache(ctx, key, out)
	return out, false, nil
}

// Overview loads the stat cards and the reference lists concurrently.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardOverview, error) {
	out := &dto.DashboardOverview{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, _, err := s.Stats(gctx)
		if err != nil {
			return err
		}
		out.Stats = *stats
		return nil
	})
	g.Go(func() error {
		rooms, err := s.rooms.List(gctx)
		if err != nil {
			return fmt.Errorf("rooms: %w", err)
		}
		out.Rooms = rooms
		return nil
	})
	g.Go(func() error {
		technicians, _, err := s.technicians.List(gctx, models.TechnicianFilter{PageSize: 100})
		if err != nil {
			return fmt.Errorf("technicians: %w", err)
		}
		out.Technicians = technicians
		return nil
	})
	g.Go(func() error {
		categories, err := s.categories.List(gctx)
		if err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		out.Categories = categories
		return nil
	})
	g.Go(func() error {
		admins, err := s.admins.ListSummaries(gctx)
		if err != nil {
			return fmt.Errorf("admins: %w", err)
		}
		out.Admins = admins
		return nil
	})

	if err := g.Wait(); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard overview")
	}
	return out, nil
}

// Invalidate drops every cached dashboard payload.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, CachePrefixDashboard)
}

func (s *DashboardService) resolveRange(start, end string) (time.Time, time.Time, error) {
	loc := s.cfg.Location
	today := s.now().In(loc)
	endDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	if end != "" {
		parsed, err := time.ParseInLocation("2006-01-02", end, loc)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "end must be YYYY-MM-DD")
		}
		endDay = parsed
	}
	startDay := endDay.AddDate(0, 0, -(s.cfg.DefaultRangeDays - 1))
	if start != "" {
		parsed, err := time.ParseInLocation("2006-01-02", start, loc)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start must be YYYY-MM-DD")
		}
		startDay = parsed
	}
	if endDay.Before(startDay) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end must not be before start")
	}
	to := endDay.AddDate(0, 0, 1)
	if to.Sub(startDay) > maxDashboardRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("range must not exceed %d days", maxDashboardRangeDays))
	}
	return startDay, to, nil
}

func (s *DashboardService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		// a broken cache degrades to a recompute
		return false
	}
	return hit
}

func (s *DashboardService) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// completionRate is completed/total as a percentage rounded to two decimals.
func completionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}

// normaliseStatusCounts folds legacy spellings into the canonical statuses,
// emits every canonical status (zero when absent) in workflow order and
// appends unrecognised values last.
func normaliseStatusCounts(rows []models.StatusCount) []models.StatusCount {
	counts := make(map[models.WorkOrderStatus]int, len(models.WorkOrderStatuses))
	var unknown []models.StatusCount
	for _, row := range rows {
		status, err := models.ParseWorkOrderStatus(string(row.Status))
		if err != nil {
			unknown = append(unknown, models.StatusCount{Status: row.Status, Label: models.UnknownStatusLabel, Count: row.Count})
			continue
		}
		counts[status] += row.Count
	}
	out := make([]models.StatusCount, 0, len(models.WorkOrderStatuses)+len(unknown))
	for _, status := range models.WorkOrderStatuses {
		out = append(out, models.StatusCount{Status: status, Label: status.Label(), Count: counts[status]})
	}
	return append(out, unknown...)
}

// fillDays returns one entry per date in [from, to), taking counts from rows.
func fillDays(rows []models.DailyCount, from, to time.Time) []models.DailyCount {
	byDate := make(map[string]int, len(rows))
	for _, row := range rows {
		byDate[row.Date] += row.Count
	}
	var out []models.DailyCount
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		label := day.Format("2006-01-02")
		out = append(out, models.DailyCount{Date: label, Count: byDate[label]})
	}
	return out
}
