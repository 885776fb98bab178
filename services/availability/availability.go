package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	availabilityRepo "serviflex/database/repository/availability"
	"serviflex/models"
	"serviflex/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const settingsCacheTTL = 5 * time.Minute

// DefaultAvailabilityService is the production implementation of
// AvailabilityService. Cache may be nil, in which case every read hits Mongo.
type DefaultAvailabilityService struct {
	Repo     availabilityRepo.AvailabilityRepository
	Bookings BookingProjection
	Cache    *redis.Client
	Defaults Defaults

	// Now is swappable for tests.
	Now func() time.Time
}

// NewDefaultAvailabilityService wires the scheduler with its dependencies.
func NewDefaultAvailabilityService(repo availabilityRepo.AvailabilityRepository, bookings BookingProjection, cache *redis.Client, defaults Defaults) *DefaultAvailabilityService {
	return &DefaultAvailabilityService{
		Repo:     repo,
		Bookings: bookings,
		Cache:    cache,
		Defaults: defaults,
		Now:      time.Now,
	}
}

// GetSettings returns the professional's settings, materializing and
// persisting the default template on first read.
func (s *DefaultAvailabilityService) GetSettings(ctx context.Context, professionalID string) (*models.AvailabilitySettings, error) {
	if cached := s.cacheGet(ctx, professionalID); cached != nil {
		return cached, nil
	}

	settings, err := s.Repo.GetSettings(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch availability settings: %w", err)
	}
	if settings == nil {
		settings = &models.AvailabilitySettings{
			ProfessionalID:     professionalID,
			WeekSchedule:       models.DefaultWeekSchedule(),
			BlockedDates:       []string{},
			BufferTime:         s.Defaults.BufferMinutes,
			AdvanceBookingDays: s.Defaults.AdvanceBookingDays,
			Timezone:           s.Defaults.Timezone,
			UpdatedAt:          s.Now().UTC(),
		}
		if err := s.Repo.UpsertSettings(ctx, settings); err != nil {
			return nil, fmt.Errorf("failed to materialize default settings: %w", err)
		}
	}

	s.cacheSet(ctx, settings)
	return settings, nil
}

// SetWeekSchedule replaces the recurring week template. Malformed or
// overlapping slots reject the whole write.
func (s *DefaultAvailabilityService) SetWeekSchedule(ctx context.Context, professionalID string, week models.WeekSchedule) (*models.AvailabilitySettings, error) {
	if err := validateWeek(week); err != nil {
		return nil, err
	}

	settings, err := s.GetSettings(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	settings.WeekSchedule = week
	settings.UpdatedAt = s.Now().UTC()

	if err := s.Repo.UpsertSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save week schedule: %w", err)
	}
	s.cacheDrop(ctx, professionalID)

	utils.GetLogger().Info("week schedule updated", zap.String("professionalID", professionalID))
	return settings, nil
}

// SetPreferences updates the scheduling knobs around the week template.
func (s *DefaultAvailabilityService) SetPreferences(ctx context.Context, professionalID string, bufferTime, advanceDays int, timezone string) (*models.AvailabilitySettings, error) {
	if bufferTime < 0 || advanceDays < 1 {
		return nil, utils.NewFault(utils.FaultConflict,
			"buffer time must be non-negative and advance booking days at least 1")
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return nil, utils.NewFault(utils.FaultConflict, "unknown timezone %q", timezone)
		}
	}

	settings, err := s.GetSettings(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	settings.BufferTime = bufferTime
	settings.AdvanceBookingDays = advanceDays
	if timezone != "" {
		settings.Timezone = timezone
	}
	settings.UpdatedAt = s.Now().UTC()

	if err := s.Repo.UpsertSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	s.cacheDrop(ctx, professionalID)
	return settings, nil
}

// BlockDate marks one calendar date as unavailable. Blocking an
// already-blocked date is a no-op.
func (s *DefaultAvailabilityService) BlockDate(ctx context.Context, professionalID string, req BlockDateRequest) error {
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return utils.NewFault(utils.FaultConflict, "invalid date %q, want YYYY-MM-DD", req.Date)
	}

	// Materialize settings first so the $addToSet has a document to land on.
	if _, err := s.GetSettings(ctx, professionalID); err != nil {
		return err
	}

	blockType := req.Type
	if blockType == "" {
		blockType = "other"
	}
	detail := &models.BlockedDate{
		ID:             uuid.New().String(),
		ProfessionalID: professionalID,
		Date:           req.Date,
		Reason:         req.Reason,
		Type:           blockType,
		CreatedAt:      s.Now().UTC(),
	}
	if err := s.Repo.AddBlockedDate(ctx, detail); err != nil {
		return fmt.Errorf("failed to block date: %w", err)
	}
	s.cacheDrop(ctx, professionalID)

	utils.GetLogger().Info("date blocked",
		zap.String("professionalID", professionalID), zap.String("date", req.Date))
	return nil
}

// UnblockDate removes a date from the blocked set.
func (s *DefaultAvailabilityService) UnblockDate(ctx context.Context, professionalID, date string) error {
	if err := s.Repo.RemoveBlockedDate(ctx, professionalID, date); err != nil {
		return fmt.Errorf("failed to unblock date: %w", err)
	}
	s.cacheDrop(ctx, professionalID)
	return nil
}

func (s *DefaultAvailabilityService) ListBlockedDates(ctx context.Context, professionalID string) ([]models.BlockedDate, error) {
	return s.Repo.ListBlockedDates(ctx, professionalID)
}

// IsAvailable reports whether a booking of durationMinutes starting at
// date+start fits the schedule, the booking horizon, and does not overlap
// any existing booking.
func (s *DefaultAvailabilityService) IsAvailable(ctx context.Context, professionalID, date, start string, durationMinutes int, excludeEngagementID string) (bool, error) {
	settings, err := s.GetSettings(ctx, professionalID)
	if err != nil {
		return false, err
	}
	if settings.DateBlocked(date) {
		return false, nil
	}

	loc, err := s.location(settings)
	if err != nil {
		return false, err
	}
	startAt, err := utils.ComposeLocal(date, start, loc)
	if err != nil {
		return false, utils.NewFault(utils.FaultConflict, "invalid booking time %s %s", date, start)
	}

	now := s.Now().In(loc)
	if startAt.Before(now) {
		return false, nil
	}
	if startAt.After(now.AddDate(0, 0, settings.AdvanceBookingDays)) {
		return false, nil
	}

	day := settings.WeekSchedule.Day(startAt.Weekday())
	if !day.Enabled {
		return false, nil
	}

	startMin, err := utils.ParseClock(start)
	if err != nil {
		return false, utils.NewFault(utils.FaultConflict, "invalid booking time %q", start)
	}
	endMin := startMin + durationMinutes
	if !fitsSchedule(day, startMin, endMin) {
		return false, nil
	}

	windows, err := s.Bookings.ActiveWindows(ctx, professionalID, date)
	if err != nil {
		return false, fmt.Errorf("failed to project bookings: %w", err)
	}
	for _, w := range windows {
		if w.EngagementID == excludeEngagementID {
			continue
		}
		if w.Overlaps(startMin, endMin) {
			return false, nil
		}
	}
	return true, nil
}

// ListAvailableSlots walks each configured window in duration+buffer strides
// and keeps the starts that pass the same checks IsAvailable applies.
func (s *DefaultAvailabilityService) ListAvailableSlots(ctx context.Context, professionalID, date string, durationMinutes int) ([]string, error) {
	settings, err := s.GetSettings(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	starts := []string{}
	if settings.DateBlocked(date) {
		return starts, nil
	}

	loc, err := s.location(settings)
	if err != nil {
		return nil, err
	}
	day0, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, utils.NewFault(utils.FaultConflict, "invalid date %q, want YYYY-MM-DD", date)
	}

	now := s.Now().In(loc)
	if day0.After(now.AddDate(0, 0, settings.AdvanceBookingDays)) {
		return starts, nil
	}

	day := settings.WeekSchedule.Day(day0.Weekday())
	if !day.Enabled {
		return starts, nil
	}

	windows, err := s.Bookings.ActiveWindows(ctx, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to project bookings: %w", err)
	}

	stride := durationMinutes + settings.BufferTime
	for _, slot := range day.Slots {
		open, err := utils.ParseClock(slot.Start)
		if err != nil {
			continue
		}
		until, err := utils.ParseClock(slot.End)
		if err != nil {
			continue
		}
		for cur := open; cur+durationMinutes <= until; cur += stride {
			startAt := day0.Add(time.Duration(cur) * time.Minute)
			if startAt.Before(now) {
				continue
			}
			if conflicts(windows, cur, cur+durationMinutes) {
				continue
			}
			starts = append(starts, utils.FormatClock(cur))
		}
	}
	return starts, nil
}

func conflicts(windows []models.BookingWindow, start, end int) bool {
	for _, w := range windows {
		if w.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// fitsSchedule reports whether [start, end) is contained in one of the day's
// configured slots.
func fitsSchedule(day models.DaySchedule, start, end int) bool {
	for _, slot := range day.Slots {
		open, err := utils.ParseClock(slot.Start)
		if err != nil {
			continue
		}
		until, err := utils.ParseClock(slot.End)
		if err != nil {
			continue
		}
		if start >= open && end <= until {
			return true
		}
	}
	return false
}

// validateWeek rejects malformed or overlapping slot configurations.
func validateWeek(week models.WeekSchedule) error {
	names := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	for i, day := range week.Days() {
		prevEnd := -1
		for _, slot := range day.Slots {
			start, err := utils.ParseClock(slot.Start)
			if err != nil {
				return utils.NewFault(utils.FaultConflict, "%s: invalid slot start %q", names[i], slot.Start)
			}
			end, err := utils.ParseClock(slot.End)
			if err != nil {
				return utils.NewFault(utils.FaultConflict, "%s: invalid slot end %q", names[i], slot.End)
			}
			if end <= start {
				return utils.NewFault(utils.FaultConflict, "%s: slot %s-%s ends before it starts", names[i], slot.Start, slot.End)
			}
			if start < prevEnd {
				return utils.NewFault(utils.FaultConflict, "%s: slots overlap around %s", names[i], slot.Start)
			}
			prevEnd = end
		}
	}
	return nil
}

func (s *DefaultAvailabilityService) location(settings *models.AvailabilitySettings) (*time.Location, error) {
	if settings.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", settings.Timezone, err)
	}
	return loc, nil
}

func cacheKey(professionalID string) string {
	return "availability:settings:" + professionalID
}

func (s *DefaultAvailabilityService) cacheGet(ctx context.Context, professionalID string) *models.AvailabilitySettings {
	if s.Cache == nil {
		return nil
	}
	raw, err := s.Cache.Get(ctx, cacheKey(professionalID)).Result()
	if err != nil {
		return nil
	}
	var settings models.AvailabilitySettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil
	}
	return &settings
}

func (s *DefaultAvailabilityService) cacheSet(ctx context.Context, settings *models.AvailabilitySettings) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, cacheKey(settings.ProfessionalID), raw, settingsCacheTTL).Err(); err != nil {
		utils.GetLogger().Warn("settings cache write failed", zap.Error(err))
	}
}

func (s *DefaultAvailabilityService) cacheDrop(ctx context.Context, professionalID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, cacheKey(professionalID)).Err(); err != nil {
		utils.GetLogger().Warn("settings cache invalidation failed", zap.Error(err))
	}
}
