// Package billing creates customers and recurring subscriptions in the
// Asaas payment platform and validates the payment data before any
// request leaves the process.
package billing

import (
	"fmt"
	"strings"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// BillingType is the payment method for a subscription.
type BillingType string

const (
	BillingCreditCard BillingType = "CREDIT_CARD"
	BillingBoleto     BillingType = "BOLETO"
	BillingPix        BillingType = "PIX"
)

// CustomerData identifies the paying customer.
type CustomerData struct {
	Name    string `json:"name" validate:"required,min=3"`
	Email   string `json:"email" validate:"required,email"`
	CpfCnpj string `json:"cpfCnpj" validate:"required,cpfcnpj"`
	Phone   string `json:"phone" validate:"required,min=10"`
}

// CreditCardData carries raw card details. Only ever sent to the
// billing provider, never stored.
type CreditCardData struct {
	HolderName  string `json:"holderName" validate:"required,min=3"`
	Number      string `json:"number" validate:"required,credit_card"`
	ExpiryMonth string `json:"expiryMonth" validate:"required,len=2,numeric"`
	ExpiryYear  string `json:"expiryYear" validate:"required,len=4,numeric"`
	Ccv         string `json:"ccv" validate:"required,numeric,min=3,max=4"`
}

// CreditCardHolderInfo is the cardholder's billing address, required by
// the provider's anti-fraud checks.
type CreditCardHolderInfo struct {
	Name          string `json:"name" validate:"required,min=3"`
	Email         string `json:"email" validate:"required,email"`
	CpfCnpj       string `json:"cpfCnpj" validate:"required,cpfcnpj"`
	PostalCode    string `json:"postalCode" validate:"required,min=8"`
	AddressNumber string `json:"addressNumber" validate:"required"`
	Phone         string `json:"phone" validate:"required,min=10"`
}

// SubscriptionRequest is everything needed to set up a recurring plan.
type SubscriptionRequest struct {
	Customer    CustomerData          `json:"customer" validate:"required"`
	BillingType BillingType           `json:"billingType" validate:"required,oneof=CREDIT_CARD BOLETO PIX"`
	PlanName    string                `json:"planName" validate:"required"`
	PlanValue   float64               `json:"planValue" validate:"required,gt=0,lte=100000"`
	CreditCard  *CreditCardData       `json:"creditCard,omitempty"`
	HolderInfo  *CreditCardHolderInfo `json:"creditCardHolderInfo,omitempty"`
	RemoteIP    string                `json:"remoteIp,omitempty"`
	LeadID      string                `json:"leadId,omitempty"`
}

// SubscriptionResult is returned to the caller after the provider
// accepted the subscription.
type SubscriptionResult struct {
	CustomerID     string      `json:"customerId"`
	SubscriptionID string      `json:"subscriptionId"`
	Status         string      `json:"status"`
	BillingType    BillingType `json:"billingType"`
	BankSlipURL    string      `json:"bankSlipUrl,omitempty"`
	PixQrCodeURL   string      `json:"pixQrCodeUrl,omitempty"`
}

// ValidationError carries the fields rejected before any provider call.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid billing data"
	}
	return fmt.Sprintf("invalid billing data: %s", strings.Join(e.Fields, ", "))
}
