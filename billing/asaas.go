package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	sandboxBaseURL    = "https://sandbox.asaas.com/api/v3"
	productionBaseURL = "https://api.asaas.com/v3"
)

// Provider is the slice of the billing platform this service uses.
type Provider interface {
	CreateCustomer(ctx context.Context, customer CustomerData) (string, error)
	CreateSubscription(ctx context.Context, sub ProviderSubscription) (*ProviderSubscriptionResult, error)
	FirstPayment(ctx context.Context, subscriptionID string) (*ProviderPayment, error)
	PixQrCode(ctx context.Context, paymentID string) (string, error)
}

// ProviderSubscription is the provider-side subscription payload.
type ProviderSubscription struct {
	Customer             string                `json:"customer"`
	BillingType          BillingType           `json:"billingType"`
	Value                float64               `json:"value"`
	NextDueDate          string                `json:"nextDueDate"`
	Cycle                string                `json:"cycle"`
	Description          string                `json:"description"`
	CreditCard           *CreditCardData       `json:"creditCard,omitempty"`
	CreditCardHolderInfo *CreditCardHolderInfo `json:"creditCardHolderInfo,omitempty"`
	RemoteIP             string                `json:"remoteIp,omitempty"`
}

type ProviderSubscriptionResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ProviderPayment is a single charge generated by a subscription.
type ProviderPayment struct {
	ID          string `json:"id"`
	BankSlipURL string `json:"bankSlipUrl"`
	InvoiceURL  string `json:"invoiceUrl"`
}

// AsaasClient talks to the Asaas REST API.
type AsaasClient struct {
	http *resty.Client
}

var _ Provider = (*AsaasClient)(nil)

// NewAsaasClient creates a client against the sandbox or production
// environment. The API key travels in the access_token header on every
// request, which is the platform's authentication scheme.
func NewAsaasClient(apiKey string, sandbox bool) *AsaasClient {
	baseURL := productionBaseURL
	if sandbox {
		baseURL = sandboxBaseURL
	}
	return &AsaasClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("access_token", apiKey).
			SetHeader("Content-Type", "application/json"),
	}
}

// NewAsaasClientWithBaseURL is used by tests to point the client at a
// local stub.
func NewAsaasClientWithBaseURL(apiKey, baseURL string) *AsaasClient {
	c := NewAsaasClient(apiKey, false)
	c.http.SetBaseURL(baseURL)
	return c
}

// asaasError is the platform's error envelope.
type asaasError struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

func (e *asaasError) message() string {
	if len(e.Errors) == 0 {
		return "unknown provider error"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		parts = append(parts, item.Description)
	}
	return strings.Join(parts, "; ")
}

func (c *AsaasClient) CreateCustomer(ctx context.Context, customer CustomerData) (string, error) {
	var (
		result struct {
			ID string `json:"id"`
		}
		apiErr asaasError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(customer).
		SetResult(&result).
		SetError(&apiErr).
		Post("/customers")
	if err != nil {
		return "", fmt.Errorf("customer request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("customer creation rejected (%s): %s", resp.Status(), apiErr.message())
	}
	return result.ID, nil
}

func (c *AsaasClient) CreateSubscription(ctx context.Context, sub ProviderSubscription) (*ProviderSubscriptionResult, error) {
	var (
		result ProviderSubscriptionResult
		apiErr asaasError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sub).
		SetResult(&result).
		SetError(&apiErr).
		Post("/subscriptions")
	if err != nil {
		return nil, fmt.Errorf("subscription request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("subscription creation rejected (%s): %s", resp.Status(), apiErr.message())
	}
	return &result, nil
}

// FirstPayment returns the first charge of a subscription, which
// carries the boleto and invoice URLs.
func (c *AsaasClient) FirstPayment(ctx context.Context, subscriptionID string) (*ProviderPayment, error) {
	var (
		result struct {
			Data []ProviderPayment `json:"data"`
		}
		apiErr asaasError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&apiErr).
		Get(fmt.Sprintf("/subscriptions/%s/payments", subscriptionID))
	if err != nil {
		return nil, fmt.Errorf("payments request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("payments lookup rejected (%s): %s", resp.Status(), apiErr.message())
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("subscription %s has no payments yet", subscriptionID)
	}
	return &result.Data[0], nil
}

// PixQrCode returns the copy-and-paste payload for a PIX charge.
func (c *AsaasClient) PixQrCode(ctx context.Context, paymentID string) (string, error) {
	var (
		result struct {
			Payload      string `json:"payload"`
			EncodedImage string `json:"encodedImage"`
		}
		apiErr asaasError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&apiErr).
		Get(fmt.Sprintf("/payments/%s/pixQrCode", paymentID))
	if err != nil {
		return "", fmt.Errorf("pix qr request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("pix qr lookup rejected (%s): %s", resp.Status(), apiErr.message())
	}
	return result.Payload, nil
}
