package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("visitor not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Visitor is one anonymous browser identity. The id is generated by the
// widget and persisted client side, so the same person keeps the same
// record across visits. Source and device are first-touch attribution:
// captured on the first sighting, never rewritten.
type Visitor struct {
	ID          uuid.UUID
	FirstPageID *uuid.UUID
	Source      *string
	Device      *string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	Converted   bool
}

// UpsertParams describes one visitor sighting.
type UpsertParams struct {
	ID     uuid.UUID
	PageID *uuid.UUID
	Source *string
	Device *string
}

// Upsert records a sighting of the visitor. First sight inserts the row
// with its attribution, later sightings only move last_seen_at forward.
func (r *Repository) Upsert(ctx context.Context, p UpsertParams) (Visitor, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO visitors (id, first_page_id, source, device)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET last_seen_at = now()
		RETURNING id, first_page_id, source, device, first_seen_at, last_seen_at, converted
	`, p.ID, p.PageID, p.Source, p.Device)

	var v Visitor
	if err := row.Scan(&v.ID, &v.FirstPageID, &v.Source, &v.Device, &v.FirstSeenAt, &v.LastSeenAt, &v.Converted); err != nil {
		return Visitor{}, fmt.Errorf("upsert visitor: %w", err)
	}
	return v, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Visitor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_page_id, source, device, first_seen_at, last_seen_at, converted
		FROM visitors WHERE id = $1
	`, id)

	var v Visitor
	err := row.Scan(&v.ID, &v.FirstPageID, &v.Source, &v.Device, &v.FirstSeenAt, &v.LastSeenAt, &v.Converted)
	if errors.Is(err, pgx.ErrNoRows) {
		return Visitor{}, ErrNotFound
	}
	if err != nil {
		return Visitor{}, fmt.Errorf("get visitor: %w", err)
	}
	return v, nil
}

// MarkConverted flags the visitor once they yield a lead.
func (r *Repository) MarkConverted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE visitors SET converted = true, last_seen_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark visitor converted: %w", err)
	}
	return nil
}

// RecordFunnelEvent appends one engagement event to the visitor's trail.
// The visitor row is upserted first so events survive out-of-order arrival
// from the task queue.
func (r *Repository) RecordFunnelEvent(ctx context.Context, p UpsertParams, eventType string) error {
	if _, err := r.Upsert(ctx, p); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO funnel_events (visitor_id, page_id, event_type)
		VALUES ($1, $2, $3)
	`, p.ID, p.PageID, eventType)
	if err != nil {
		return fmt.Errorf("record funnel event: %w", err)
	}
	return nil
}

// FunnelEvent is one recorded engagement action.
type FunnelEvent struct {
	ID        uuid.UUID
	VisitorID uuid.UUID
	PageID    *uuid.UUID
	EventType string
	CreatedAt time.Time
}

// ListFunnelEvents returns a visitor's engagement trail, oldest first.
func (r *Repository) ListFunnelEvents(ctx context.Context, visitorID uuid.UUID) ([]FunnelEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, visitor_id, page_id, event_type, created_at
		FROM funnel_events
		WHERE visitor_id = $1
		ORDER BY created_at ASC, id ASC
	`, visitorID)
	if err != nil {
		return nil, fmt.Errorf("list funnel events: %w", err)
	}
	defer rows.Close()

	out := make([]FunnelEvent, 0)
	for rows.Next() {
		var e FunnelEvent
		if err := rows.Scan(&e.ID, &e.VisitorID, &e.PageID, &e.EventType, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
