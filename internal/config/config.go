package config

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	BillingConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetDatabaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type AuthConfig interface {
	GetAuthBaseURL() string
	GetAuthClientID() string
	GetProjectRef() string
	GetSessionStorageKey() string
	GetGuardFailOpen() bool
	GetAdminEmails() []string
	GetDevAuthSecret() string
}

type BillingConfig interface {
	GetAsaasAPIKey() string
	IsAsaasSandbox() bool
}

type StorageConfig interface {
	GetStorageBaseURL() string
	GetStorageServiceKey() string
	GetDocumentsBucket() string
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	Billing
	Storage
}

func New() Config {
	return mainConfig{}
}
