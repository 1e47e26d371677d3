package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abrefacil/checkout-server/billing"
)

func fixedNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := billing.NowTimeFunc
	billing.NowTimeFunc = func() time.Time { return at }
	t.Cleanup(func() { billing.NowTimeFunc = prev })
}

func TestValidCpfCnpj(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{"valid cpf with punctuation", "529.982.247-25", true},
		{"valid cpf digits only", "52998224725", true},
		{"repeated digit cpf passes checksum but is rejected", "111.111.111-11", false},
		{"cpf with bad check digit", "529.982.247-26", false},
		{"cpf too short", "5299822472", false},
		{"cpf too long", "529982247251", false},
		{"valid cnpj", "11.222.333/0001-81", true},
		{"cnpj with bad check digit", "11.222.333/0001-82", false},
		{"repeated digit cnpj", "11.111.111/1111-11", false},
		{"empty", "", false},
		{"letters only", "abc.def.ghi-jk", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, billing.ValidCpfCnpj(tc.doc))
		})
	}
}

func validCardRequest() *billing.SubscriptionRequest {
	return &billing.SubscriptionRequest{
		Customer: billing.CustomerData{
			Name:    "Maria Souza",
			Email:   "maria@example.com",
			CpfCnpj: "529.982.247-25",
			Phone:   "11999990000",
		},
		BillingType: billing.BillingCreditCard,
		PlanName:    "Plano de Contabilidade",
		PlanValue:   189.90,
		CreditCard: &billing.CreditCardData{
			HolderName:  "Maria Souza",
			Number:      "4111111111111111",
			ExpiryMonth: "12",
			ExpiryYear:  "2030",
			Ccv:         "123",
		},
		HolderInfo: &billing.CreditCardHolderInfo{
			Name:          "Maria Souza",
			Email:         "maria@example.com",
			CpfCnpj:       "529.982.247-25",
			PostalCode:    "01310100",
			AddressNumber: "100",
			Phone:         "11999990000",
		},
	}
}

func TestValidateSubscriptionRequest(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	t.Run("valid card request", func(t *testing.T) {
		require.NoError(t, billing.Validate(validCardRequest()))
	})

	t.Run("valid boleto request needs no card", func(t *testing.T) {
		req := validCardRequest()
		req.BillingType = billing.BillingBoleto
		req.CreditCard = nil
		req.HolderInfo = nil
		require.NoError(t, billing.Validate(req))
	})

	t.Run("card payment without card data", func(t *testing.T) {
		req := validCardRequest()
		req.CreditCard = nil
		requireValidationError(t, req)
	})

	t.Run("card payment without holder info", func(t *testing.T) {
		req := validCardRequest()
		req.HolderInfo = nil
		requireValidationError(t, req)
	})

	t.Run("expired card", func(t *testing.T) {
		req := validCardRequest()
		req.CreditCard.ExpiryMonth = "02"
		req.CreditCard.ExpiryYear = "2026"
		requireValidationError(t, req)
	})

	t.Run("card expiring this month is accepted", func(t *testing.T) {
		req := validCardRequest()
		req.CreditCard.ExpiryMonth = "03"
		req.CreditCard.ExpiryYear = "2026"
		require.NoError(t, billing.Validate(req))
	})

	t.Run("card number failing luhn", func(t *testing.T) {
		req := validCardRequest()
		req.CreditCard.Number = "4111111111111112"
		requireValidationError(t, req)
	})

	t.Run("bad customer document", func(t *testing.T) {
		req := validCardRequest()
		req.Customer.CpfCnpj = "111.111.111-11"
		requireValidationError(t, req)
	})

	t.Run("bad email", func(t *testing.T) {
		req := validCardRequest()
		req.Customer.Email = "not-an-email"
		requireValidationError(t, req)
	})

	t.Run("zero plan value", func(t *testing.T) {
		req := validCardRequest()
		req.PlanValue = 0
		requireValidationError(t, req)
	})

	t.Run("plan value above ceiling", func(t *testing.T) {
		req := validCardRequest()
		req.PlanValue = 100001
		requireValidationError(t, req)
	})

	t.Run("unknown billing type", func(t *testing.T) {
		req := validCardRequest()
		req.BillingType = "CASH"
		requireValidationError(t, req)
	})
}

func requireValidationError(t *testing.T, req *billing.SubscriptionRequest) {
	t.Helper()
	err := billing.Validate(req)
	var verr *billing.ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Fields)
}
