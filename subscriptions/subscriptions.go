// Package subscriptions records the billing subscription created for a
// lead in the external billing provider.
package subscriptions

import "time"

type Subscription struct {
	ID                  string    `json:"id"`
	LeadID              string    `json:"lead_id"`
	AsaasCustomerID     string    `json:"asaas_customer_id"`
	AsaasSubscriptionID string    `json:"asaas_subscription_id"`
	BillingType         string    `json:"billing_type"`
	PlanName            string    `json:"plan_name"`
	PlanValue           float64   `json:"plan_value"`
	Status              string    `json:"status"`
	BankSlipURL         string    `json:"bank_slip_url,omitempty"`
	PixQrCodeURL        string    `json:"pix_qr_code_url,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
