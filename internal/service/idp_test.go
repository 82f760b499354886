package service_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"oidcgate/internal/config"
	"oidcgate/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"gotest.tools/v3/assert"
)

// testIdP is an in-process identity provider serving discovery, JWKS, token
// and userinfo endpoints, enough to drive the full authorization code flow
// without the network. ID tokens are signed with a throwaway RSA key that the
// JWKS endpoint publishes.
type testIdP struct {
	t        *testing.T
	server   *httptest.Server
	key      *rsa.PrivateKey
	clientID string

	mu        sync.Mutex
	subject   string
	email     string
	name      string
	username  string
	picture   string
	nonce     string
	omitEmail bool
	userinfo  map[string]interface{}
	tokenErr  string
	issParam  bool

	discoveryHits int32
	tokenHits     int32
}

func newTestIdP(t *testing.T) *testIdP {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NilError(t, err)

	idp := &testIdP{
		t:        t,
		key:      key,
		clientID: "test-client",
		subject:  "test-subject",
		email:    "jane@example.com",
		name:     "Jane Doe",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", idp.discoveryHandler)
	mux.HandleFunc("/jwks", idp.jwksHandler)
	mux.HandleFunc("/token", idp.tokenHandler)
	mux.HandleFunc("/userinfo", idp.userinfoHandler)

	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)

	return idp
}

func (idp *testIdP) issuer() string {
	return idp.server.URL
}

func (idp *testIdP) discoveryHandler(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&idp.discoveryHits, 1)

	idp.mu.Lock()
	issParam := idp.issParam
	idp.mu.Unlock()

	writeJSON(w, 200, map[string]interface{}{
		"issuer":                                idp.server.URL,
		"authorization_endpoint":                idp.server.URL + "/authorize",
		"token_endpoint":                        idp.server.URL + "/token",
		"userinfo_endpoint":                     idp.server.URL + "/userinfo",
		"jwks_uri":                              idp.server.URL + "/jwks",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"authorization_response_iss_parameter_supported": issParam,
	})
}

func (idp *testIdP) jwksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]interface{}{
		"keys": []map[string]interface{}{
			{
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"kid": "test-key",
				"n":   base64.RawURLEncoding.EncodeToString(idp.key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(idp.key.E)).Bytes()),
			},
		},
	})
}

func (idp *testIdP) tokenHandler(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&idp.tokenHits, 1)

	idp.mu.Lock()
	defer idp.mu.Unlock()

	if idp.tokenErr != "" {
		writeJSON(w, 400, map[string]interface{}{
			"error": idp.tokenErr,
		})
		return
	}

	now := time.Now()

	claims := jwt.MapClaims{
		"iss": idp.server.URL,
		"aud": idp.clientID,
		"sub": idp.subject,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}

	if !idp.omitEmail {
		claims["email"] = idp.email
	}
	if idp.name != "" {
		claims["name"] = idp.name
	}
	if idp.username != "" {
		claims["preferred_username"] = idp.username
	}
	if idp.picture != "" {
		claims["picture"] = idp.picture
	}
	if idp.nonce != "" {
		claims["nonce"] = idp.nonce
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"

	signed, err := token.SignedString(idp.key)
	assert.NilError(idp.t, err)

	writeJSON(w, 200, map[string]interface{}{
		"access_token": "test-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     signed,
	})
}

func (idp *testIdP) userinfoHandler(w http.ResponseWriter, r *http.Request) {
	idp.mu.Lock()
	defer idp.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer test-access-token" {
		writeJSON(w, 401, map[string]interface{}{
			"error": "invalid_token",
		})
		return
	}

	info := idp.userinfo
	if info == nil {
		info = map[string]interface{}{
			"sub":   idp.subject,
			"email": idp.email,
			"name":  idp.name,
		}
	}

	writeJSON(w, 200, info)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Shared test fixtures

func newTestDatabase(t *testing.T) *service.DatabaseService {
	databaseService := service.NewDatabaseService(service.DatabaseServiceConfig{
		DatabasePath: filepath.Join(t.TempDir(), "oidcgate.db"),
	})
	assert.NilError(t, databaseService.Init())
	return databaseService
}

func newTestTokenService(t *testing.T) *service.TokenService {
	tokenService := service.NewTokenService(service.TokenServiceConfig{
		Issuer:        "https://app.example.com",
		SessionExpiry: 3600,
	})
	assert.NilError(t, tokenService.Init())
	return tokenService
}

func testOIDCConfig(idp *testIdP) config.OIDCConfig {
	return config.OIDCConfig{
		Enabled:       true,
		IssuerURL:     idp.issuer(),
		ClientID:      idp.clientID,
		ClientSecret:  "s3cret",
		RedirectURI:   "https://app.example.com/login",
		AutoProvision: true,
		DefaultRole:   "user",
	}
}
