package config

type Billing struct{}

var _ BillingConfig = Billing{}

func (Billing) GetAsaasAPIKey() string {
	return GetEnv("ASAAS_API_KEY", "")
}

// IsAsaasSandbox defaults to the sandbox so a misconfigured deploy can
// never charge real money.
func (Billing) IsAsaasSandbox() bool {
	return GetEnv("ASAAS_ENV", "sandbox") != "production"
}
