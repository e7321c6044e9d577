package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCAuthenticator verifies ID tokens issued by an external OpenID
// Connect provider using discovery and its JWKS.
type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
}

// Ensure OIDCAuthenticator implements Authenticator
var _ Authenticator = (*OIDCAuthenticator)(nil)

// NewOIDCAuthenticator discovers the provider at issuerURL. An empty
// audience skips the client ID check.
func NewOIDCAuthenticator(ctx context.Context, issuerURL, audience string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          audience,
		SkipClientIDCheck: audience == "",
	})
	return &OIDCAuthenticator{verifier: verifier}, nil
}

// Authenticate verifies the token and maps its subject and email.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, tokenString string) (*Principal, error) {
	idToken, err := a.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("token for %s has no email claim", idToken.Subject)
	}
	return &Principal{Subject: idToken.Subject, Email: claims.Email, Name: claims.Name}, nil
}
