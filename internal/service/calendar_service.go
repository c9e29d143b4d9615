package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"familia/internal/models"
	"familia/internal/repository"
	"familia/internal/validation"
)

// NewEvent describes an event to add to a family calendar
type NewEvent struct {
	Title       string    `json:"title" validate:"nonblank,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Location    string    `json:"location" validate:"max=200"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end"`
}

// CalendarService manages a family's shared calendar
type CalendarService struct {
	calendarRepo *repository.CalendarRepository
	membership   *MembershipService
	now          func() time.Time
}

// NewCalendarService creates a new calendar service
func NewCalendarService(calendarRepo *repository.CalendarRepository, membership *MembershipService) *CalendarService {
	return &CalendarService{
		calendarRepo: calendarRepo,
		membership:   membership,
		now:          time.Now,
	}
}

// AddEvent adds an event to a family calendar the caller belongs to.
// An event without an end lasts DefaultEventDuration.
func (s *CalendarService) AddEvent(ctx context.Context, caller, familyID string, in NewEvent) (*models.CalendarEvent, error) {
	if err := s.membership.VerifyFamilyAccess(ctx, caller, familyID); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.End.IsZero() {
		in.End = in.Start.Add(models.DefaultEventDuration)
	}
	if in.End.Before(in.Start) {
		return nil, validation.Error{Field: "end", Message: "end must not be before start"}
	}

	event := &models.CalendarEvent{
		ID:          uuid.NewString(),
		FamilyID:    familyID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Start:       repository.Timestamp(in.Start),
		End:         repository.Timestamp(in.End),
		CreatedBy:   caller,
		CreatedAt:   repository.Timestamp(s.now()),
	}
	if err := s.calendarRepo.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// EventsForDay returns the family's events starting on the given day,
// with day boundaries taken in day's location.
func (s *CalendarService) EventsForDay(ctx context.Context, caller, familyID string, day time.Time) ([]models.CalendarEvent, error) {
	if err := s.membership.VerifyFamilyAccess(ctx, caller, familyID); err != nil {
		return nil, err
	}
	from, to := models.DayBounds(day)
	events, err := s.calendarRepo.GetEventsBetween(ctx, familyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}
