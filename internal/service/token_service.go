package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"oidcgate/internal/config"
	"oidcgate/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type TokenServiceConfig struct {
	Issuer        string
	SessionExpiry int
	KeyPath       string
}

// SessionToken is the application session issued after a successful login.
type SessionToken struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

// TokenService mints and validates the application's own session tokens.
// Identity providers never see these; they are signed with a local RSA key.
type TokenService struct {
	config     TokenServiceConfig
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

func NewTokenService(config TokenServiceConfig) *TokenService {
	return &TokenService{
		config: config,
	}
}

func (tokens *TokenService) Init() error {
	if tokens.config.KeyPath != "" {
		key, err := loadPrivateKey(tokens.config.KeyPath)

		if err == nil {
			tokens.privateKey = key
			tokens.publicKey = &key.PublicKey
			log.Info().Str("path", tokens.config.KeyPath).Msg("Loaded session signing key")
			return nil
		}

		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load signing key: %w", err)
		}
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)

	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	tokens.privateKey = privateKey
	tokens.publicKey = &privateKey.PublicKey

	if tokens.config.KeyPath != "" {
		if err := writePrivateKey(tokens.config.KeyPath, privateKey); err != nil {
			return fmt.Errorf("failed to persist signing key: %w", err)
		}
	}

	log.Info().Msg("Token service initialized with RSA key pair")
	return nil
}

// MintToken converts a resolved user into a signed session token.
func (tokens *TokenService) MintToken(user model.User) (*SessionToken, error) {
	expiry := tokens.config.SessionExpiry
	if expiry <= 0 {
		expiry = 86400
	}

	now := time.Now()
	expires := now.Add(time.Duration(expiry) * time.Second).Unix()

	var roles []string
	if err := json.Unmarshal([]byte(user.Roles), &roles); err != nil {
		roles = []string{}
	}

	claims := jwt.MapClaims{
		"iss":   tokens.config.Issuer,
		"sub":   fmt.Sprintf("%d", user.ID),
		"jti":   uuid.New().String(),
		"email": user.Email,
		"name":  user.Name,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   expires,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(tokens.privateKey)

	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &SessionToken{
		Token:   signed,
		Expires: expires,
	}, nil
}

// ValidateToken parses a session token and returns the user context embedded
// in it.
func (tokens *TokenService) ValidateToken(tokenString string) (*config.UserContext, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tokens.publicKey, nil
	}, jwt.WithIssuer(tokens.config.Issuer), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("missing sub claim")
	}

	var userID uint
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
		return nil, fmt.Errorf("invalid sub claim: %w", err)
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	roles := []string{}
	if raw, ok := claims["roles"].([]interface{}); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				roles = append(roles, role)
			}
		}
	}

	return &config.UserContext{
		UserID:     userID,
		Email:      email,
		Name:       name,
		Roles:      roles,
		IsLoggedIn: true,
	}, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)

	if block == nil {
		return nil, errors.New("no PEM block in key file")
	}

	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

func writePrivateKey(path string, key *rsa.PrivateKey) error {
	data := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	return os.WriteFile(path, data, 0600)
}
