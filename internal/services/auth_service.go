package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/events"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

const maxUsernameLength = 25

type authService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
	sessions  *auth.SessionStore
	hasher    *auth.PasswordHasher
	tokens    *auth.ResetTokenManager
	publisher events.EventPublisher
	sso       repositories.IdentityProvider
	config    ServiceManagerConfig
}

func NewAuthService(deps Dependencies, config ServiceManagerConfig) AuthService {
	return &authService{
		repo:      deps.Repo,
		cache:     deps.Cache,
		logger:    deps.Logger.With("service", "auth"),
		validator: deps.Validator,
		sessions:  deps.Sessions,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		publisher: deps.Publisher,
		sso:       deps.IdentityProvider,
		config:    config,
	}
}

// ===== REGISTRATION AND LOGIN =====

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	if errs := s.validator.GetBusinessValidator().ValidateRegistration(req); errs != nil {
		return nil, errs
	}

	emailTaken, err := s.repo.User().ExistsByEmail(ctx, nil, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if emailTaken {
		return nil, ErrEmailTaken
	}

	nameTaken, err := s.repo.User().ExistsByUsername(ctx, nil, req.Username, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if nameTaken {
		return nil, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		ImageFile:    models.DefaultProfileImage,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			// lost a race with a concurrent registration
			return nil, s.registrationConflict(ctx, req.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	cache.SafeDelete(ctx, s.cache.Stats, siteStatsKey)
	s.logger.Info("User registered", "user_id", user.ID)

	return s.startSession(ctx, user)
}

// registrationConflict names the column a concurrent registration claimed first
func (s *authService) registrationConflict(ctx context.Context, email string) error {
	emailTaken, err := s.repo.User().ExistsByEmail(ctx, nil, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if emailTaken {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	if errs := s.validator.Validate(req); errs != nil {
		return nil, errs
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, validator.NormalizeEmail(req.Email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.logger.Info("Rejected login", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

func (s *authService) startSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	sessionID, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	return &AuthResult{
		Identity:  identityOf(user),
		SessionID: sessionID,
		ExpiresIn: s.sessions.TTL(),
	}, nil
}

// Authenticate resolves the session and caches the identity of its user
func (s *authService) Authenticate(ctx context.Context, sessionID string) (*auth.Identity, error) {
	userID, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	var identity auth.Identity
	err = s.cache.User.CacheOrExecute(ctx, cache.IdentityKey(userID), &identity, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		user, err := s.repo.User().GetByID(ctx, nil, userID)
		if err != nil {
			return nil, err
		}
		return identityOf(user), nil
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// account is gone, the session with it
			_ = s.sessions.Destroy(ctx, sessionID)
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	return &identity, nil
}

// ===== PASSWORD RESET =====

func (s *authService) RequestPasswordReset(ctx context.Context, req *ForgotPasswordRequest) error {
	req.Email = validator.NormalizeEmail(req.Email)
	if errs := s.validator.Validate(req); errs != nil {
		return errs
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Info("Password reset requested for unknown address")
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	token, err := s.tokens.Generate(user.Email, auth.Fingerprint(user.PasswordHash))
	if err != nil {
		return fmt.Errorf("failed to sign reset token: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{"user_id": user.ID})
	delivery := &models.EmailDelivery{
		Recipient: user.Email,
		Kind:      models.EmailPasswordReset,
		Status:    models.DeliveryQueued,
		Payload:   datatypes.JSON(payload),
	}
	if err := s.repo.EmailDelivery().Create(ctx, nil, delivery); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	event, err := events.NewEvent(events.TypePasswordResetRequested, events.PasswordResetRequested{
		DeliveryID: delivery.ID,
		Email:      user.Email,
		Username:   user.Username,
		ResetURL:   s.resetURL(token),
	})
	if err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, s.config.MailTopic, event); err != nil {
		// the requester is told the same thing either way
		s.logger.Error("Failed to enqueue password reset mail", "error", err, "delivery_id", delivery.ID)
		if markErr := s.repo.EmailDelivery().MarkFailed(ctx, nil, delivery.ID, err); markErr != nil {
			s.logger.Error("Failed to mark delivery failed", "error", markErr, "delivery_id", delivery.ID)
		}
		return nil
	}

	s.logger.Info("Password reset mail enqueued", "user_id", user.ID, "delivery_id", delivery.ID)
	return nil
}

func (s *authService) resetURL(token string) string {
	return s.config.PublicBaseURL + "/auth/reset_password/" + url.PathEscape(token)
}

func (s *authService) VerifyResetToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("Reset token rejected", "reason", err)
		return nil, ErrInvalidResetToken
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, claims.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	// password already changed since the token was issued
	if claims.Fingerprint != auth.Fingerprint(user.PasswordHash) {
		return nil, ErrInvalidResetToken
	}

	return user, nil
}

func (s *authService) ResetPassword(ctx context.Context, token string, req *ResetPasswordRequest) error {
	user, err := s.VerifyResetToken(ctx, token)
	if err != nil {
		return err
	}

	if errs := s.validator.Validate(req); errs != nil {
		return errs
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}

	if err := s.repo.User().UpdatePassword(ctx, nil, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.DestroyAll(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to revoke sessions after password reset", "error", err, "user_id", user.ID)
	}

	s.logger.Info("Password reset completed", "user_id", user.ID)
	return nil
}

// ===== SINGLE SIGN-ON =====

func (s *authService) SSOEnabled() bool {
	return s.sso != nil
}

func (s *authService) SSOSigninURL() string {
	if s.sso == nil {
		return ""
	}
	return s.sso.SigninURL("")
}

// LoginWithSSO signs in the account matching the provider's e-mail, creating it on first use
func (s *authService) LoginWithSSO(ctx context.Context, code, state string) (*AuthResult, error) {
	if s.sso == nil {
		return nil, ErrSSODisabled
	}

	external, err := s.sso.Exchange(ctx, code, state)
	if err != nil {
		s.logger.Warn("Single sign-on exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSSOFailed, err)
	}

	email := validator.NormalizeEmail(external.Email)
	user, err := s.repo.User().GetByEmail(ctx, nil, email)
	switch {
	case err == nil:
	case repositories.IsNotFoundError(err):
		user, err = s.provisionSSOUser(ctx, email, external)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return s.startSession(ctx, user)
}

func (s *authService) provisionSSOUser(ctx context.Context, email string, external *repositories.ExternalIdentity) (*models.User, error) {
	// the account can only be used through the provider until a reset sets a password
	hash, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	base := usernameCandidate(external.Username, email)
	for attempt := 0; attempt < 5; attempt++ {
		name := base
		if attempt > 0 {
			suffix := "-" + uuid.NewString()[:4]
			name = truncate(base, maxUsernameLength-len(suffix)) + suffix
		}

		taken, err := s.repo.User().ExistsByUsername(ctx, nil, name, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			continue
		}

		user := &models.User{Username: name, Email: email, PasswordHash: hash, ImageFile: models.DefaultProfileImage}
		if err := s.repo.User().Create(ctx, nil, user); err != nil {
			if repositories.IsDuplicateError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		cache.SafeDelete(ctx, s.cache.Stats, siteStatsKey)
		s.logger.Info("User provisioned from single sign-on", "user_id", user.ID, "subject", external.Subject)
		return user, nil
	}

	return nil, fmt.Errorf("%w: no free username for %q", ErrSSOFailed, base)
}

// usernameCandidate keeps letters, digits, dots, dashes and underscores
func usernameCandidate(preferred, email string) string {
	source := preferred
	if source == "" {
		source, _, _ = strings.Cut(email, "@")
	}

	var b strings.Builder
	for _, r := range source {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	name := truncate(b.String(), maxUsernameLength)
	if len([]rune(name)) < 3 {
		name = "user-" + uuid.NewString()[:6]
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func identityOf(user *models.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Username: user.Username, Email: user.Email}
}
