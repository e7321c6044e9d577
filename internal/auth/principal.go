package auth

import "context"

// Principal is an authenticated identity as asserted by the identity
// provider. It carries no authorization data.
type Principal struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
}

// Authenticator validates a bearer token and returns its principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}
