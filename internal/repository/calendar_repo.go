package repository

import (
	"context"
	"fmt"
	"time"

	"familia/internal/database"
	"familia/internal/models"
)

// CalendarRepository handles database operations for family calendar events
type CalendarRepository struct {
	db database.Querier
}

// NewCalendarRepository creates a new calendar repository
func NewCalendarRepository(db database.Querier) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// CreateEvent inserts a calendar event
func (r *CalendarRepository) CreateEvent(ctx context.Context, event *models.CalendarEvent) error {
	query := `
		INSERT INTO calendar_events (id, family_id, title, description, location, starts_at, ends_at, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.FamilyID,
		event.Title,
		event.Description,
		event.Location,
		Timestamp(event.Start),
		Timestamp(event.End),
		event.CreatedBy,
		Timestamp(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create calendar event: %w", err)
	}
	return nil
}

// GetEventsBetween returns a family's events starting in [from, to], ordered by start
func (r *CalendarRepository) GetEventsBetween(ctx context.Context, familyID string, from, to time.Time) ([]models.CalendarEvent, error) {
	query := `
		SELECT id, family_id, title, description, location, starts_at, ends_at, created_by, created_at
		FROM calendar_events
		WHERE family_id = ? AND starts_at >= ? AND starts_at <= ?
		ORDER BY starts_at ASC, id ASC
	`
	return r.queryEvents(ctx, query, familyID, Timestamp(from), Timestamp(to))
}

// GetAllEvents returns every event, for backups
func (r *CalendarRepository) GetAllEvents(ctx context.Context) ([]models.CalendarEvent, error) {
	query := `
		SELECT id, family_id, title, description, location, starts_at, ends_at, created_by, created_at
		FROM calendar_events
		ORDER BY starts_at ASC, id ASC
	`
	return r.queryEvents(ctx, query)
}

func (r *CalendarRepository) queryEvents(ctx context.Context, query string, args ...any) ([]models.CalendarEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar events: %w", err)
	}
	defer rows.Close()

	events := []models.CalendarEvent{}
	for rows.Next() {
		var e models.CalendarEvent
		if err := rows.Scan(&e.ID, &e.FamilyID, &e.Title, &e.Description, &e.Location, &e.Start, &e.End, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan calendar event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calendar events: %w", err)
	}
	return events, nil
}
