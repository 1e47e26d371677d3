package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abrefacil/checkout-server/subscriptions"
)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

var _ subscriptions.Repo = (*SubscriptionRepo)(nil)

func (r *SubscriptionRepo) Insert(ctx context.Context, sub *subscriptions.Subscription) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO subscriptions (id, lead_id, asaas_customer_id, asaas_subscription_id, billing_type, plan_name, plan_value, status, bank_slip_url, pix_qr_code_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)`,
		sub.ID, sub.LeadID, sub.AsaasCustomerID, sub.AsaasSubscriptionID, sub.BillingType,
		sub.PlanName, sub.PlanValue, sub.Status, sub.BankSlipURL, sub.PixQrCodeURL, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) GetByLeadID(ctx context.Context, leadID string) (*subscriptions.Subscription, error) {
	sub, err := scanSubscription(r.pool.QueryRow(ctx,
		`SELECT id, lead_id, asaas_customer_id, asaas_subscription_id, billing_type, plan_name, plan_value, status, bank_slip_url, pix_qr_code_url, created_at
		 FROM subscriptions WHERE lead_id = $1 ORDER BY created_at DESC LIMIT 1`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, subscriptions.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying subscription: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepo) List(ctx context.Context, offset, limit int) ([]*subscriptions.Subscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lead_id, asaas_customer_id, asaas_subscription_id, billing_type, plan_name, plan_value, status, bank_slip_url, pix_qr_code_url, created_at
		 FROM subscriptions ORDER BY created_at OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*subscriptions.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubscription(row pgx.Row) (*subscriptions.Subscription, error) {
	var (
		sub          subscriptions.Subscription
		bankSlipURL  *string
		pixQrCodeURL *string
	)
	err := row.Scan(&sub.ID, &sub.LeadID, &sub.AsaasCustomerID, &sub.AsaasSubscriptionID,
		&sub.BillingType, &sub.PlanName, &sub.PlanValue, &sub.Status,
		&bankSlipURL, &pixQrCodeURL, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	if bankSlipURL != nil {
		sub.BankSlipURL = *bankSlipURL
	}
	if pixQrCodeURL != nil {
		sub.PixQrCodeURL = *pixQrCodeURL
	}
	return &sub, nil
}
