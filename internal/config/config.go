package config

// Version information, set at build time

var Version = "development"
var CommitHash = "development"
var BuildTimestamp = "0000-00-00T00:00:00Z"

// ID of the settings row that holds the OIDC configuration

var OIDCSettingID = "oidc-config"

// Main app config

type Config struct {
	Port           int    `mapstructure:"port" validate:"required"`
	Address        string `validate:"required,ip4_addr" mapstructure:"address"`
	AppURL         string `validate:"required,url" mapstructure:"app-url"`
	DatabasePath   string `mapstructure:"database-path" validate:"required"`
	SessionExpiry  int    `mapstructure:"session-expiry"`
	LogLevel       string `mapstructure:"log-level" validate:"oneof=trace debug info warn error fatal panic"`
	TrustedProxies string `mapstructure:"trusted-proxies"`
	JWTKeyPath     string `mapstructure:"jwt-key-path"`
}

// OIDC provider configuration, stored as the meta blob of the settings row.
// When Enabled is true the issuer URL, client id/secret and redirect URI are
// required.

type OIDCConfig struct {
	Enabled       bool   `json:"enabled"`
	IssuerURL     string `json:"issuer_url"`
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	RedirectURI   string `json:"redirect_uri"`
	Scope         string `json:"scope"`
	AutoProvision bool   `json:"auto_provision"`
	DefaultRole   string `json:"default_role"`
	ProviderName  string `json:"provider_name"`
	ButtonText    string `json:"button_text"`
}

// Identity claims returned by the provider, either embedded in the ID token
// or fetched from the userinfo endpoint. Nickname is the fallback for
// PreferredUsername since not every provider sends both.

type Claims struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Nickname          string `json:"nickname"`
	Picture           string `json:"picture"`
	Nonce             string `json:"nonce"`
}

// User/session related stuff

type UserContext struct {
	UserID     uint
	Email      string
	Name       string
	Roles      []string
	IsLoggedIn bool
}

func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
