package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casaviva_backend/internal/leads/domain"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lead is the persisted lead record. A visitor has at most one lead
// (unique on visitor_id); profile fields are nullable until extracted.
type Lead struct {
	ID              uuid.UUID
	VisitorID       uuid.UUID
	Name            *string
	Phone           *string
	Email           *string
	Budget          *string
	Preferences     *string
	Stage           string
	IsVIP           bool
	Summary         *string
	WelcomeNotified bool
	VIPNotified     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Fields converts the stored nullable columns into the merge value type.
func (l Lead) Fields() domain.LeadFields {
	return domain.LeadFields{
		Name:        deref(l.Name),
		Phone:       deref(l.Phone),
		Email:       deref(l.Email),
		Budget:      deref(l.Budget),
		Preferences: deref(l.Preferences),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

const leadColumns = `id, visitor_id, name, phone, email, budget, preferences,
		stage, is_vip, summary, welcome_notified, vip_notified, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.VisitorID, &l.Name, &l.Phone, &l.Email, &l.Budget, &l.Preferences,
		&l.Stage, &l.IsVIP, &l.Summary, &l.WelcomeNotified, &l.VIPNotified,
		&l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// GetByVisitor returns the lead for a visitor, or ErrNotFound.
func (r *Repository) GetByVisitor(ctx context.Context, visitorID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE visitor_id = $1
	`, visitorID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("get lead by visitor: %w", err)
	}
	return lead, nil
}

// GetByID returns a single lead, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1
	`, id)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// Create inserts a new lead for the visitor. The unique visitor_id index
// makes concurrent creates race-safe: ON CONFLICT returns the existing row
// untouched so the caller always proceeds with one canonical record.
func (r *Repository) Create(ctx context.Context, visitorID uuid.UUID, fields domain.LeadFields, stage string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (visitor_id, name, phone, email, budget, preferences, stage)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
		ON CONFLICT (visitor_id) DO UPDATE SET updated_at = now()
		RETURNING `+leadColumns+`
	`, visitorID, fields.Name, fields.Phone, fields.Email, fields.Budget, fields.Preferences, stage)

	lead, err := scanLead(row)
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

// ReconcileFields applies an extraction merge to the stored row. The merge
// policy is enforced in the UPDATE itself rather than trusted from the
// caller's snapshot: phone and email keep their first captured value, the
// refinable fields take any non-empty incoming value, and an empty incoming
// value never clears a column. A stale reconciliation pass on another
// instance therefore cannot wipe or replace contact data captured between
// its read and its write.
func (r *Repository) ReconcileFields(ctx context.Context, id uuid.UUID, fields domain.LeadFields) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET name = COALESCE(NULLIF($2, ''), name),
			phone = COALESCE(phone, NULLIF($3, '')),
			email = COALESCE(email, NULLIF($4, '')),
			budget = COALESCE(NULLIF($5, ''), budget),
			preferences = COALESCE(NULLIF($6, ''), preferences),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, id, fields.Name, fields.Phone, fields.Email, fields.Budget, fields.Preferences)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("reconcile lead fields: %w", err)
	}
	return lead, nil
}

// UpdateFields overwrites the profile columns unconditionally. This is the
// operator-edit path: unlike ReconcileFields it may clear a field or change
// a captured phone.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields domain.LeadFields) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET name = NULLIF($2, ''),
			phone = NULLIF($3, ''),
			email = NULLIF($4, ''),
			budget = NULLIF($5, ''),
			preferences = NULLIF($6, ''),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, id, fields.Name, fields.Phone, fields.Email, fields.Budget, fields.Preferences)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("update lead fields: %w", err)
	}
	return lead, nil
}

// UpdateStage sets the funnel stage.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, stage string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET stage = $2, updated_at = now() WHERE id = $1
	`, id, stage)
	if err != nil {
		return fmt.Errorf("update lead stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkWelcomeNotified flips the welcome flag and reports whether this call
// won the claim. The conditional WHERE makes the welcome workflow fire at
// most once per lead regardless of concurrent extraction passes.
func (r *Repository) MarkWelcomeNotified(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET welcome_notified = true, updated_at = now()
		WHERE id = $1 AND welcome_notified = false
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark welcome notified: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ClaimVIP promotes the lead to VIP and reports whether this call won the
// claim. Same at-most-once scheme as MarkWelcomeNotified.
func (r *Repository) ClaimVIP(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET is_vip = true, updated_at = now()
		WHERE id = $1 AND is_vip = false
	`, id)
	if err != nil {
		return false, fmt.Errorf("claim vip: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// MarkVIPNotified records that the VIP alert was dispatched.
func (r *Repository) MarkVIPNotified(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET vip_notified = true, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark vip notified: %w", err)
	}
	return nil
}

// SetSummary stores the VIP profile summary.
func (r *Repository) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET summary = $2, updated_at = now() WHERE id = $1
	`, id, summary)
	if err != nil {
		return fmt.Errorf("set lead summary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFilter narrows the admin listing.
type ListFilter struct {
	Stage   string
	VIPOnly bool
	Limit   int
	Offset  int
}

// List returns leads for the admin surface, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE ($1 = '' OR stage = $1)
		  AND (NOT $2 OR is_vip = true)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, filter.Stage, filter.VIPOnly, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
