package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"oidcgate/internal/apperrors"
	"oidcgate/internal/config"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const DefaultScope = "openid email profile"

// AuthorizationAttempt carries the artifacts of one authorization request.
// Nothing is stored server side; the caller keeps state, nonce and the code
// verifier and echoes them back on the callback.
type AuthorizationAttempt struct {
	URL          string `json:"url"`
	State        string `json:"state"`
	Nonce        string `json:"nonce"`
	CodeVerifier string `json:"code_verifier"`
}

// OIDCClientService memoizes a single ProviderClient keyed by a fingerprint
// of the stored configuration. The slot is the only shared mutable state in
// the process; discovery always runs outside the lock and the slot is swapped
// atomically, so a reader never sees a half built client. There is no TTL,
// staleness is detected purely by fingerprint mismatch.
type OIDCClientService struct {
	settings   *SettingsService
	httpClient *http.Client
	mutex      sync.Mutex
	cached     *ProviderClient
}

func NewOIDCClientService(settings *SettingsService) *OIDCClientService {
	return &OIDCClientService{
		settings: settings,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetClient returns a client for the current configuration, reusing the
// cached one while the fingerprint still matches. Two concurrent misses may
// both run discovery; the last writer wins, which is harmless since both
// snapshots describe the same configuration.
func (clients *OIDCClientService) GetClient(ctx context.Context) (*ProviderClient, error) {
	cfg, err := clients.settings.GetOIDCConfig()

	if err != nil {
		return nil, err
	}

	if cfg == nil || !cfg.Enabled {
		return nil, apperrors.ErrConfiguration
	}

	fingerprint := configFingerprint(*cfg)

	clients.mutex.Lock()
	if clients.cached != nil && clients.cached.fingerprint == fingerprint {
		cached := clients.cached
		clients.mutex.Unlock()
		return cached, nil
	}
	clients.mutex.Unlock()

	log.Info().Str("issuer", cfg.IssuerURL).Msg("Initializing OIDC client")

	client, err := clients.buildClient(ctx, *cfg, fingerprint)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDiscovery, err)
	}

	clients.mutex.Lock()
	clients.cached = client
	clients.mutex.Unlock()

	return client, nil
}

// Invalidate drops the cached client. Called on every configuration write.
// In-flight logins keep the snapshot they already resolved.
func (clients *OIDCClientService) Invalidate() {
	clients.mutex.Lock()
	clients.cached = nil
	clients.mutex.Unlock()
	log.Info().Msg("OIDC client cache cleared")
}

// Test runs discovery and client construction for a candidate configuration
// without touching the cache or the stored settings.
func (clients *OIDCClientService) Test(ctx context.Context, cfg config.OIDCConfig) (ProviderMetadata, error) {
	client, err := clients.buildClient(ctx, cfg, configFingerprint(cfg))

	if err != nil {
		return ProviderMetadata{}, fmt.Errorf("%w: %v", apperrors.ErrDiscovery, err)
	}

	return client.metadata, nil
}

// BeginAuthorization starts a PKCE authorization code flow: three fresh
// 256-bit random artifacts and the authorization URL built from them.
func (clients *OIDCClientService) BeginAuthorization(ctx context.Context) (*AuthorizationAttempt, error) {
	client, err := clients.GetClient(ctx)

	if err != nil {
		return nil, err
	}

	state, err := randomToken()

	if err != nil {
		return nil, err
	}

	nonce, err := randomToken()

	if err != nil {
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()

	return &AuthorizationAttempt{
		URL:          client.AuthCodeURL(state, nonce, verifier),
		State:        state,
		Nonce:        nonce,
		CodeVerifier: verifier,
	}, nil
}

func (clients *OIDCClientService) buildClient(ctx context.Context, cfg config.OIDCConfig, fingerprint string) (*ProviderClient, error) {
	// The provider keeps this context for later JWKS refreshes, so it must
	// outlive the request that triggered discovery. Boundedness comes from
	// the http client timeout.
	discoveryCtx := oidc.ClientContext(context.Background(), clients.httpClient)

	provider, err := oidc.NewProvider(discoveryCtx, cfg.IssuerURL)

	if err != nil {
		return nil, err
	}

	var metadata ProviderMetadata

	if err := provider.Claims(&metadata); err != nil {
		return nil, err
	}

	log.Info().Str("issuer", metadata.Issuer).Msg("Discovered issuer")

	scope := cfg.Scope
	if scope == "" {
		scope = DefaultScope
	}

	return &ProviderClient{
		fingerprint: fingerprint,
		provider:    provider,
		verifier:    provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     provider.Endpoint(),
			Scopes:       strings.Fields(scope),
		},
		metadata:   metadata,
		httpClient: clients.httpClient,
	}, nil
}

// configFingerprint hashes the canonical serialization of a configuration.
// Any field change yields a new fingerprint and forces reconstruction.
func configFingerprint(cfg config.OIDCConfig) string {
	serialized, _ := json.Marshal(cfg)
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}

func randomToken() (string, error) {
	b := make([]byte, 32)

	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
