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

var ErrNotFound = errors.New("landing page not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LandingPage is one property campaign page the concierge can talk about.
// Persona names an entry in the personas file; PersonaPrompt, when set,
// replaces the persona's system prompt entirely for this page.
type LandingPage struct {
	ID            uuid.UUID
	Slug          string
	Title         string
	Description   string
	PriceLabel    string
	Amenities     []string
	Persona       string
	PersonaPrompt *string
	AgentName     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const pageColumns = `id, slug, title, description, price_label, amenities,
		persona, persona_prompt, agent_name, created_at, updated_at`

func scanPage(row pgx.Row) (LandingPage, error) {
	var p LandingPage
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Description, &p.PriceLabel, &p.Amenities,
		&p.Persona, &p.PersonaPrompt, &p.AgentName, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (LandingPage, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+pageColumns+` FROM landing_pages WHERE slug = $1
	`, slug)

	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LandingPage{}, ErrNotFound
	}
	if err != nil {
		return LandingPage{}, fmt.Errorf("get page by slug: %w", err)
	}
	return page, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (LandingPage, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+pageColumns+` FROM landing_pages WHERE id = $1
	`, id)

	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LandingPage{}, ErrNotFound
	}
	if err != nil {
		return LandingPage{}, fmt.Errorf("get page: %w", err)
	}
	return page, nil
}

// CreateParams carries the insertable page fields.
type CreateParams struct {
	Slug          string
	Title         string
	Description   string
	PriceLabel    string
	Amenities     []string
	Persona       string
	PersonaPrompt *string
	AgentName     *string
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (LandingPage, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO landing_pages (slug, title, description, price_label, amenities, persona, persona_prompt, agent_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+pageColumns+`
	`, params.Slug, params.Title, params.Description, params.PriceLabel,
		params.Amenities, params.Persona, params.PersonaPrompt, params.AgentName)

	page, err := scanPage(row)
	if err != nil {
		return LandingPage{}, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

func (r *Repository) List(ctx context.Context) ([]LandingPage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+pageColumns+` FROM landing_pages ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	pages := make([]LandingPage, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return pages, nil
}
