package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abrefacil/checkout-server/leads"
)

type LeadRepo struct {
	pool *pgxpool.Pool
}

var _ leads.Repo = (*LeadRepo)(nil)

func (r *LeadRepo) Insert(ctx context.Context, lead *leads.Lead) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO leads (id, name, email, phone, created_at) VALUES ($1, $2, $3, $4, $5)`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting lead: %w", err)
	}
	return nil
}

func (r *LeadRepo) GetByID(ctx context.Context, id string) (*leads.Lead, error) {
	var lead leads.Lead
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, created_at FROM leads WHERE id = $1`, id).
		Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, leads.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying lead: %w", err)
	}
	return &lead, nil
}

func (r *LeadRepo) List(ctx context.Context, offset, limit int) ([]*leads.Lead, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, created_at FROM leads ORDER BY created_at OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	var out []*leads.Lead
	for rows.Next() {
		var lead leads.Lead
		if err := rows.Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		out = append(out, &lead)
	}
	return out, rows.Err()
}
