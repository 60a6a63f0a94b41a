package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comilla/site-backend/internal/domain/attachments"
	"github.com/comilla/site-backend/internal/domain/events"
	"github.com/comilla/site-backend/internal/metrics"
)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const eventColumns = `id, name, description, location, event_date, event_time, image_keys, image_urls, created_at, updated_at`

func scanEvent(row pgx.Row) (*events.Event, error) {
	var (
		e    events.Event
		keys []string
		urls []string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Location, &e.Date, &e.Time,
		&keys, &urls, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, events.ErrNotFound
		}
		return nil, err
	}
	e.Images = attachments.SlotsFromArrays(keys, urls)
	return &e, nil
}

func (r *EventRepository) List(ctx context.Context) (items []events.Event, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("list_events", start, err)
	}(time.Now())

	rows, err := pick(r.pool, r.tx).Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items = make([]events.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (event *events.Event, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("get_event", start, ignoreNotFound(err, events.ErrNotFound))
	}(time.Now())

	event, err = scanEvent(pick(r.pool, r.tx).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil && err != events.ErrNotFound {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, err
}

func (r *EventRepository) ExistsByName(ctx context.Context, name string) (exists bool, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("event_name_exists", start, err)
	}(time.Now())

	err = pick(r.pool, r.tx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check event name: %w", err)
	}
	return exists, nil
}

func (r *EventRepository) Create(ctx context.Context, e events.Event) (event *events.Event, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("create_event", start, err)
	}(time.Now())

	event, err = scanEvent(pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO events (id, name, description, location, event_date, event_time, image_keys, image_urls)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+eventColumns,
		e.ID, e.Name, e.Description, e.Location, e.Date, e.Time, e.Images.Keys(), e.Images.URLs()))
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Update(ctx context.Context, e events.Event) (event *events.Event, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("update_event", start, ignoreNotFound(err, events.ErrNotFound))
	}(time.Now())

	event, err = scanEvent(pick(r.pool, r.tx).QueryRow(ctx, `
UPDATE events
   SET name = $2, description = $3, location = $4, event_date = $5, event_time = $6,
       image_keys = $7, image_urls = $8, updated_at = now()
 WHERE id = $1
RETURNING `+eventColumns,
		e.ID, e.Name, e.Description, e.Location, e.Date, e.Time, e.Images.Keys(), e.Images.URLs()))
	if err != nil && err != events.ErrNotFound {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, err
}

func (r *EventRepository) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("delete_event", start, ignoreNotFound(err, events.ErrNotFound))
	}(time.Now())

	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}
