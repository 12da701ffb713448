package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Roles a persisted turn may carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Turn is one persisted conversation message.
type Turn struct {
	ID        uuid.UUID
	VisitorID uuid.UUID
	PageID    *uuid.UUID
	Role      string
	Content   string
	CreatedAt time.Time
}

// Append stores one turn at the end of the visitor's conversation.
func (r *Repository) Append(ctx context.Context, visitorID uuid.UUID, pageID *uuid.UUID, role, content string) (Turn, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversation_turns (visitor_id, page_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, visitor_id, page_id, role, content, created_at
	`, visitorID, pageID, role, content)

	var t Turn
	if err := row.Scan(&t.ID, &t.VisitorID, &t.PageID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
		return Turn{}, fmt.Errorf("append turn: %w", err)
	}
	return t, nil
}

// ListByVisitor returns the visitor's full conversation, oldest first.
func (r *Repository) ListByVisitor(ctx context.Context, visitorID uuid.UUID) ([]Turn, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, visitor_id, page_id, role, content, created_at
		FROM conversation_turns
		WHERE visitor_id = $1
		ORDER BY created_at ASC, id ASC
	`, visitorID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	turns := make([]Turn, 0)
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.VisitorID, &t.PageID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return turns, nil
}

// CountExchanges returns the number of completed exchanges for a visitor.
// One exchange is one user message answered by the assistant, so the
// assistant-turn count is the exchange count.
func (r *Repository) CountExchanges(ctx context.Context, visitorID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM conversation_turns
		WHERE visitor_id = $1 AND role = $2
	`, visitorID, RoleAssistant).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count exchanges: %w", err)
	}
	return count, nil
}
