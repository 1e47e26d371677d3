package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abrefacil/checkout-server/billing"
)

type fakeProvider struct {
	createCustomerFunc     func(ctx context.Context, customer billing.CustomerData) (string, error)
	createSubscriptionFunc func(ctx context.Context, sub billing.ProviderSubscription) (*billing.ProviderSubscriptionResult, error)
	firstPaymentFunc       func(ctx context.Context, subscriptionID string) (*billing.ProviderPayment, error)
	pixQrCodeFunc          func(ctx context.Context, paymentID string) (string, error)

	customerCalls     int
	subscriptionCalls int
	lastSubscription  billing.ProviderSubscription
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, customer billing.CustomerData) (string, error) {
	f.customerCalls++
	if f.createCustomerFunc != nil {
		return f.createCustomerFunc(ctx, customer)
	}
	return "cus_000001", nil
}

func (f *fakeProvider) CreateSubscription(ctx context.Context, sub billing.ProviderSubscription) (*billing.ProviderSubscriptionResult, error) {
	f.subscriptionCalls++
	f.lastSubscription = sub
	if f.createSubscriptionFunc != nil {
		return f.createSubscriptionFunc(ctx, sub)
	}
	return &billing.ProviderSubscriptionResult{ID: "sub_000001", Status: "ACTIVE"}, nil
}

func (f *fakeProvider) FirstPayment(ctx context.Context, subscriptionID string) (*billing.ProviderPayment, error) {
	if f.firstPaymentFunc != nil {
		return f.firstPaymentFunc(ctx, subscriptionID)
	}
	return &billing.ProviderPayment{ID: "pay_000001", BankSlipURL: "https://example.com/boleto/pay_000001"}, nil
}

func (f *fakeProvider) PixQrCode(ctx context.Context, paymentID string) (string, error) {
	if f.pixQrCodeFunc != nil {
		return f.pixQrCodeFunc(ctx, paymentID)
	}
	return "00020126pixpayload", nil
}

func TestServiceCreateSubscription(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)
	ctx := context.Background()

	t.Run("credit card", func(t *testing.T) {
		provider := &fakeProvider{}
		svc := billing.NewService(provider)

		result, err := svc.CreateSubscription(ctx, validCardRequest())
		require.NoError(t, err)
		require.Equal(t, "cus_000001", result.CustomerID)
		require.Equal(t, "sub_000001", result.SubscriptionID)
		require.Equal(t, "ACTIVE", result.Status)
		require.Equal(t, billing.BillingCreditCard, result.BillingType)
		require.Empty(t, result.BankSlipURL)
		require.Empty(t, result.PixQrCodeURL)

		// First charge is due tomorrow, monthly cycle, fixed plan
		// description.
		require.Equal(t, "2026-03-16", provider.lastSubscription.NextDueDate)
		require.Equal(t, "MONTHLY", provider.lastSubscription.Cycle)
		require.Equal(t, "Plano de Contabilidade", provider.lastSubscription.Description)
		require.NotNil(t, provider.lastSubscription.CreditCard)
	})

	t.Run("boleto carries the slip url", func(t *testing.T) {
		provider := &fakeProvider{}
		svc := billing.NewService(provider)

		req := validCardRequest()
		req.BillingType = billing.BillingBoleto
		req.CreditCard = nil
		req.HolderInfo = nil

		result, err := svc.CreateSubscription(ctx, req)
		require.NoError(t, err)
		require.Equal(t, "https://example.com/boleto/pay_000001", result.BankSlipURL)
		// Card details never travel on non-card subscriptions.
		require.Nil(t, provider.lastSubscription.CreditCard)
	})

	t.Run("pix carries the qr payload", func(t *testing.T) {
		provider := &fakeProvider{}
		svc := billing.NewService(provider)

		req := validCardRequest()
		req.BillingType = billing.BillingPix
		req.CreditCard = nil
		req.HolderInfo = nil

		result, err := svc.CreateSubscription(ctx, req)
		require.NoError(t, err)
		require.Equal(t, "00020126pixpayload", result.PixQrCodeURL)
	})

	t.Run("validation failure makes no provider calls", func(t *testing.T) {
		provider := &fakeProvider{}
		svc := billing.NewService(provider)

		req := validCardRequest()
		req.Customer.CpfCnpj = "123"

		_, err := svc.CreateSubscription(ctx, req)
		var verr *billing.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Zero(t, provider.customerCalls)
		require.Zero(t, provider.subscriptionCalls)
	})

	t.Run("customer failure stops before subscription", func(t *testing.T) {
		provider := &fakeProvider{
			createCustomerFunc: func(context.Context, billing.CustomerData) (string, error) {
				return "", errors.New("customer creation rejected (400 Bad Request): invalid cpfCnpj")
			},
		}
		svc := billing.NewService(provider)

		_, err := svc.CreateSubscription(ctx, validCardRequest())
		require.Error(t, err)
		require.Zero(t, provider.subscriptionCalls)
	})

	t.Run("payment link lookup failure is not fatal", func(t *testing.T) {
		provider := &fakeProvider{
			firstPaymentFunc: func(context.Context, string) (*billing.ProviderPayment, error) {
				return nil, errors.New("payments lookup rejected")
			},
		}
		svc := billing.NewService(provider)

		req := validCardRequest()
		req.BillingType = billing.BillingBoleto
		req.CreditCard = nil
		req.HolderInfo = nil

		result, err := svc.CreateSubscription(ctx, req)
		require.NoError(t, err)
		require.Empty(t, result.BankSlipURL)
	})
}
