// Package postgres implements the entity repositories on PostgreSQL
// via pgx connection pooling.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Adapter owns the connection pool and hands out the per-entity
// repositories backed by it.
type Adapter struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Adapter{pool: pool}, nil
}

func (a *Adapter) Close() {
	a.pool.Close()
}

func (a *Adapter) Leads() *LeadRepo                   { return &LeadRepo{pool: a.pool} }
func (a *Adapter) Qualifications() *QualificationRepo { return &QualificationRepo{pool: a.pool} }
func (a *Adapter) Formations() *FormationRepo         { return &FormationRepo{pool: a.pool} }
func (a *Adapter) Subscriptions() *SubscriptionRepo   { return &SubscriptionRepo{pool: a.pool} }

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS qualifications (
	id UUID PRIMARY KEY,
	lead_id UUID NOT NULL REFERENCES leads(id),
	company_segment TEXT NOT NULL,
	area_of_operation TEXT NOT NULL,
	monthly_revenue TEXT NOT NULL,
	is_qualified BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS company_formations (
	id UUID PRIMARY KEY,
	lead_id UUID NOT NULL REFERENCES leads(id),
	iptu TEXT NOT NULL,
	has_ecpf BOOLEAN NOT NULL DEFAULT false,
	ecpf_certificate_url TEXT,
	user_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS partners (
	id UUID PRIMARY KEY,
	company_formation_id UUID NOT NULL REFERENCES company_formations(id),
	name TEXT NOT NULL,
	rg TEXT NOT NULL,
	cpf TEXT NOT NULL,
	cep TEXT NOT NULL,
	address TEXT NOT NULL,
	city_state TEXT NOT NULL,
	marital_status TEXT NOT NULL,
	birthplace_city TEXT NOT NULL,
	birthplace_state TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	company_formation_id UUID NOT NULL REFERENCES company_formations(id),
	partner_id UUID REFERENCES partners(id),
	document_type TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_url TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id UUID PRIMARY KEY,
	lead_id UUID NOT NULL REFERENCES leads(id),
	asaas_customer_id TEXT NOT NULL,
	asaas_subscription_id TEXT NOT NULL,
	billing_type TEXT NOT NULL,
	plan_name TEXT NOT NULL,
	plan_value NUMERIC(10,2) NOT NULL,
	status TEXT NOT NULL,
	bank_slip_url TEXT,
	pix_qr_code_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the schema when it does not exist yet.
func (a *Adapter) Migrate(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
