package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abrefacil/checkout-server/qualifications"
)

type QualificationRepo struct {
	pool *pgxpool.Pool
}

var _ qualifications.Repo = (*QualificationRepo)(nil)

func (r *QualificationRepo) Insert(ctx context.Context, q *qualifications.Qualification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO qualifications (id, lead_id, company_segment, area_of_operation, monthly_revenue, is_qualified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.LeadID, q.CompanySegment, q.AreaOfOperation, q.MonthlyRevenue, q.IsQualified, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting qualification: %w", err)
	}
	return nil
}

func (r *QualificationRepo) GetByLeadID(ctx context.Context, leadID string) (*qualifications.Qualification, error) {
	var q qualifications.Qualification
	err := r.pool.QueryRow(ctx,
		`SELECT id, lead_id, company_segment, area_of_operation, monthly_revenue, is_qualified, created_at
		 FROM qualifications WHERE lead_id = $1 ORDER BY created_at DESC LIMIT 1`, leadID).
		Scan(&q.ID, &q.LeadID, &q.CompanySegment, &q.AreaOfOperation, &q.MonthlyRevenue, &q.IsQualified, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, qualifications.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying qualification: %w", err)
	}
	return &q, nil
}
