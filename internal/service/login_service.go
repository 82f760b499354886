package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"oidcgate/internal/apperrors"
	"oidcgate/internal/config"
	"oidcgate/internal/model"
	"oidcgate/internal/utils"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// CallbackRequest is the payload the browser posts after the provider
// redirect. Code, verifier and redirect URI are required; state and nonce are
// round-tripped by the caller, and iss is forwarded when the provider
// included it in the redirect.
type CallbackRequest struct {
	Code         string `json:"code" binding:"required"`
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier" binding:"required"`
	RedirectURI  string `json:"redirect_uri" binding:"required"`
	Nonce        string `json:"nonce"`
	Iss          string `json:"iss"`
}

// ReconcileOutcome tags which reconciliation path ran for a callback.
type ReconcileOutcome struct {
	User    model.User
	Created bool
}

// LoginService drives a callback through code exchange, claim resolution,
// identity reconciliation and session minting. Each callback runs
// independently; repository writes for one callback happen in a single
// transaction.
type LoginService struct {
	clients  *OIDCClientService
	settings *SettingsService
	tokens   *TokenService
	database *gorm.DB
}

func NewLoginService(clients *OIDCClientService, settings *SettingsService, tokens *TokenService, database *gorm.DB) *LoginService {
	return &LoginService{
		clients:  clients,
		settings: settings,
		tokens:   tokens,
		database: database,
	}
}

// HandleCallback exchanges the authorization code, resolves identity claims,
// reconciles them against the local user records and mints a session token.
func (login *LoginService) HandleCallback(ctx context.Context, req CallbackRequest) (*SessionToken, error) {
	client, err := login.clients.GetClient(ctx)

	if err != nil {
		return nil, err
	}

	token, err := login.exchangeCode(ctx, client, req)

	if err != nil {
		return nil, err
	}

	claims, err := login.resolveClaims(ctx, client, token, req.Nonce)

	if err != nil {
		return nil, err
	}

	log.Info().Str("sub", claims.Sub).Str("email", claims.Email).Msg("OIDC user authenticated")

	cfg, err := login.settings.GetOIDCConfig()

	if err != nil {
		return nil, err
	}

	if cfg == nil {
		return nil, apperrors.ErrConfiguration
	}

	outcome, err := login.Reconcile(claims, *cfg)

	if err != nil {
		return nil, err
	}

	return login.tokens.MintToken(outcome.User)
}

// exchangeCode performs the Received -> Exchanged transition. Providers that
// advertise the iss response parameter but never send it get exactly one
// direct grant retry; everything else fails on the spot.
func (login *LoginService) exchangeCode(ctx context.Context, client *ProviderClient, req CallbackRequest) (*oauth2.Token, error) {
	token, err := client.Exchange(ctx, req.Code, req.CodeVerifier, req.RedirectURI, req.Iss)

	if errors.Is(err, apperrors.ErrMissingIssParam) {
		log.Warn().Msg("iss missing from authorization response, attempting direct token exchange")
		token, err = client.Grant(ctx, req.Code, req.CodeVerifier, req.RedirectURI)
	}

	if err != nil {
		if errors.Is(err, apperrors.ErrAuth) {
			return nil, err
		}

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return nil, fmt.Errorf("%w: invalid or expired authorization code", apperrors.ErrAuth)
		}

		return nil, fmt.Errorf("%w: %v", apperrors.ErrExchange, err)
	}

	return token, nil
}

// resolveClaims performs the Exchanged -> ClaimsResolved transition: verify
// the ID token and nonce, then take claims from the token or fall back to the
// userinfo endpoint when the token carries no email.
func (login *LoginService) resolveClaims(ctx context.Context, client *ProviderClient, token *oauth2.Token, nonce string) (config.Claims, error) {
	var claims config.Claims

	idToken, err := client.VerifyIDToken(ctx, token)

	if err != nil {
		if errors.Is(err, apperrors.ErrMissingIDToken) {
			return claims, fmt.Errorf("%w: %v", apperrors.ErrExchange, err)
		}
		return claims, fmt.Errorf("%w: id token verification failed: %v", apperrors.ErrAuth, err)
	}

	if nonce != "" && idToken.Nonce != nonce {
		return claims, fmt.Errorf("%w: invalid nonce", apperrors.ErrAuth)
	}

	if err := idToken.Claims(&claims); err != nil {
		return claims, fmt.Errorf("%w: %v", apperrors.ErrClaims, err)
	}

	if claims.Email == "" {
		log.Debug().Msg("No email in ID token, querying userinfo endpoint")

		claims, err = client.Userinfo(ctx, token)

		if err != nil {
			return claims, fmt.Errorf("%w: userinfo request failed: %v", apperrors.ErrClaims, err)
		}
	}

	if claims.Email == "" {
		return claims, fmt.Errorf("%w: no email claim", apperrors.ErrClaims)
	}

	return claims, nil
}

// Reconcile maps resolved claims onto local user and auth records. Repeated
// callbacks for the same email always converge onto the same user row; a
// lost provisioning race is detected by the unique email index and retried
// as an update.
func (login *LoginService) Reconcile(claims config.Claims, cfg config.OIDCConfig) (ReconcileOutcome, error) {
	providerName := cfg.ProviderName
	if providerName == "" {
		providerName = "oidc"
	}

	email := utils.NormalizeEmail(claims.Email)

	var outcome ReconcileOutcome

	err := login.database.Transaction(func(tx *gorm.DB) error {
		var user model.User

		err := tx.Where("email = ? AND is_deleted = ?", email, false).First(&user).Error

		if err == nil {
			log.Info().Uint("user", user.ID).Msg("Updating existing user for OIDC login")

			updated, err := login.reconcileExistingUser(tx, user, claims, providerName)
			if err != nil {
				return err
			}

			outcome = ReconcileOutcome{User: updated}
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if !cfg.AutoProvision {
			return fmt.Errorf("%w: user does not exist and auto-provisioning is disabled", apperrors.ErrAuth)
		}

		log.Info().Str("email", email).Msg("Creating new user from OIDC login")

		created, err := login.provisionNewUser(tx, claims, cfg, email, providerName)

		if err != nil {
			if !isDuplicateKey(err) {
				return err
			}

			// Another callback won the provisioning race, take the update path.
			log.Warn().Str("email", email).Msg("User was provisioned concurrently, updating instead")

			var winner model.User
			if err := tx.Where("email = ? AND is_deleted = ?", email, false).First(&winner).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// The unique index spans deleted rows, so the conflicting
					// account must be a deleted one.
					return fmt.Errorf("%w: a deleted account already uses this email", apperrors.ErrAuth)
				}
				return err
			}

			updated, err := login.reconcileExistingUser(tx, winner, claims, providerName)
			if err != nil {
				return err
			}

			outcome = ReconcileOutcome{User: updated}
			return nil
		}

		outcome = ReconcileOutcome{User: created, Created: true}
		return nil
	})

	if err != nil {
		return ReconcileOutcome{}, err
	}

	return outcome, nil
}

func (login *LoginService) reconcileExistingUser(tx *gorm.DB, user model.User, claims config.Claims, providerName string) (model.User, error) {
	now := time.Now().Unix()

	updates := map[string]interface{}{
		"is_oidc":    true,
		"updated_at": now,
	}

	if claims.Name != "" {
		updates["name"] = claims.Name
	}

	if nickname := claimNickname(claims); nickname != "" {
		updates["nickname"] = nickname
	}

	updates["avatar"] = claimAvatar(claims)

	if err := tx.Model(&model.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return model.User{}, err
	}

	if err := tx.Where("id = ?", user.ID).First(&user).Error; err != nil {
		return model.User{}, err
	}

	var auth model.Auth

	err := tx.Where("user_id = ? AND type = ?", user.ID, model.AuthTypeOIDC).First(&auth).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, insertAuthRecord(tx, user.ID, claims, providerName)
	}

	if err != nil {
		return model.User{}, err
	}

	err = tx.Model(&model.Auth{}).Where("id = ?", auth.ID).Updates(map[string]interface{}{
		"oidc_provider": providerName,
		"oidc_sub":      claims.Sub,
		"meta":          authMeta(claims, "updated_at"),
		"updated_at":    now,
	}).Error

	return user, err
}

func (login *LoginService) provisionNewUser(tx *gorm.DB, claims config.Claims, cfg config.OIDCConfig, email string, providerName string) (model.User, error) {
	defaultRole := cfg.DefaultRole
	if defaultRole == "" {
		defaultRole = "user"
	}

	roles, err := json.Marshal([]string{defaultRole})

	if err != nil {
		return model.User{}, err
	}

	name := claims.Name
	if name == "" {
		name = claims.Email
	}

	nickname := claimNickname(claims)
	if nickname == "" {
		nickname = utils.EmailLocalPart(email)
	}

	now := time.Now().Unix()

	user := model.User{
		Email:      email,
		Name:       name,
		Nickname:   nickname,
		Avatar:     claimAvatar(claims),
		Roles:      string(roles),
		IsDisabled: false,
		IsOIDC:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := tx.Create(&user).Error; err != nil {
		return model.User{}, err
	}

	if err := insertAuthRecord(tx, user.ID, claims, providerName); err != nil {
		return model.User{}, err
	}

	log.Info().Uint("user", user.ID).Msg("Created new user")
	return user, nil
}

func insertAuthRecord(tx *gorm.DB, userID uint, claims config.Claims, providerName string) error {
	now := time.Now().Unix()

	return tx.Create(&model.Auth{
		UserID:       userID,
		Type:         model.AuthTypeOIDC,
		Secret:       "",
		OIDCProvider: providerName,
		OIDCSub:      claims.Sub,
		Meta:         authMeta(claims, "created_at"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}).Error
}

func authMeta(claims config.Claims, timestampKey string) string {
	meta, _ := json.Marshal(map[string]string{
		"email":      claims.Email,
		"name":       claims.Name,
		timestampKey: time.Now().UTC().Format(time.RFC3339),
	})
	return string(meta)
}

func claimNickname(claims config.Claims) string {
	if claims.PreferredUsername != "" {
		return claims.PreferredUsername
	}
	return claims.Nickname
}

func claimAvatar(claims config.Claims) string {
	if claims.Picture != "" {
		return claims.Picture
	}
	return utils.GravatarURL(claims.Email)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
