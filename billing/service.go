package billing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	subscriptionCycle       = "MONTHLY"
	subscriptionDescription = "Plano de Contabilidade"
)

// Service validates payment data and drives the provider calls in
// order: customer first, then the subscription against that customer.
type Service struct {
	provider Provider
}

func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// CreateSubscription sets up a monthly subscription. Validation
// failures come back as *ValidationError before any provider call is
// made; provider failures come back as plain errors.
func (s *Service) CreateSubscription(ctx context.Context, req *SubscriptionRequest) (*SubscriptionResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	customerID, err := s.provider.CreateCustomer(ctx, req.Customer)
	if err != nil {
		return nil, fmt.Errorf("creating billing customer: %w", err)
	}

	sub := ProviderSubscription{
		Customer:    customerID,
		BillingType: req.BillingType,
		Value:       req.PlanValue,
		NextDueDate: NowTimeFunc().AddDate(0, 0, 1).Format("2006-01-02"),
		Cycle:       subscriptionCycle,
		Description: subscriptionDescription,
		RemoteIP:    req.RemoteIP,
	}
	if req.BillingType == BillingCreditCard {
		sub.CreditCard = req.CreditCard
		sub.CreditCardHolderInfo = req.HolderInfo
	}

	created, err := s.provider.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("creating subscription: %w", err)
	}

	result := &SubscriptionResult{
		CustomerID:     customerID,
		SubscriptionID: created.ID,
		Status:         created.Status,
		BillingType:    req.BillingType,
	}
	s.attachPaymentLinks(ctx, result)
	return result, nil
}

// attachPaymentLinks decorates the result with the boleto or PIX
// payment link. The subscription already exists at this point, so a
// lookup failure is logged and the result goes out without the link
// rather than failing the whole flow.
func (s *Service) attachPaymentLinks(ctx context.Context, result *SubscriptionResult) {
	if result.BillingType != BillingBoleto && result.BillingType != BillingPix {
		return
	}

	payment, err := s.provider.FirstPayment(ctx, result.SubscriptionID)
	if err != nil {
		log.Warn().Err(err).Str("subscriptionID", result.SubscriptionID).Msg("billing: first payment lookup failed")
		return
	}

	switch result.BillingType {
	case BillingBoleto:
		result.BankSlipURL = payment.BankSlipURL
	case BillingPix:
		payload, err := s.provider.PixQrCode(ctx, payment.ID)
		if err != nil {
			log.Warn().Err(err).Str("paymentID", payment.ID).Msg("billing: pix qr lookup failed")
			return
		}
		result.PixQrCodeURL = payload
	}
}
