package casdoor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/studyroom-service/internal/config"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
)

var ErrMissingEmail = errors.New("casdoor account has no email address")

// IdentityCasdoor resolves single sign-on logins through a Casdoor application
type IdentityCasdoor struct {
	client *casdoorsdk.Client
	config config.CasdoorConfig
}

func NewIdentityCasdoor(cfg config.CasdoorConfig) repositories.IdentityProvider {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)

	return &IdentityCasdoor{
		client: client,
		config: cfg,
	}
}

// SigninURL returns the Casdoor login page that redirects back to redirectURL
func (i *IdentityCasdoor) SigninURL(redirectURL string) string {
	if redirectURL == "" {
		redirectURL = i.config.RedirectURL
	}
	return i.client.GetSigninUrl(redirectURL)
}

// Exchange trades an authorization code for the signed-in Casdoor user
func (i *IdentityCasdoor) Exchange(ctx context.Context, code, state string) (*repositories.ExternalIdentity, error) {
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token, err := i.client.GetOAuthToken(code, state)
	if err != nil {
		return nil, fmt.Errorf("casdoor token exchange failed: %w", err)
	}

	claims, err := i.client.ParseJwtToken(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("casdoor token parse failed: %w", err)
	}

	return identityFromUser(&claims.User)
}

func identityFromUser(user *casdoorsdk.User) (*repositories.ExternalIdentity, error) {
	if user == nil {
		return nil, fmt.Errorf("casdoor claims carry no user")
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return nil, ErrMissingEmail
	}

	subject := user.Id
	if subject == "" {
		subject = user.Owner + "/" + user.Name
	}

	return &repositories.ExternalIdentity{
		Subject:     subject,
		Email:       email,
		Username:    user.Name,
		DisplayName: user.DisplayName,
	}, nil
}
