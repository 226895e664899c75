package auth

import (
	"context"
	"strings"

	"google.golang.org/api/idtoken"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/config"
	"stroke_rehab_backend/internal/shared"
)

// GoogleVerifier verifies a Google-issued ID token and extracts the
// asserted identity.
type GoogleVerifier interface {
	Verify(ctx context.Context, rawToken string) (*shared.FederatedProfile, error)
}

type googleIDTokenVerifier struct {
	clientID string
}

// NewGoogleVerifier creates a verifier bound to the configured OAuth
// client id (the expected token audience).
func NewGoogleVerifier(cfg *config.Config) GoogleVerifier {
	return &googleIDTokenVerifier{clientID: cfg.GoogleClientID}
}

func (v *googleIDTokenVerifier) Verify(ctx context.Context, rawToken string) (*shared.FederatedProfile, error) {
	if v.clientID == "" {
		return nil, common.ErrServiceUnavailable.WithDetails("Federated login is not configured.")
	}

	payload, err := idtoken.Validate(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, common.ErrTokenInvalid.WithDetails("The provided Google token could not be verified.")
	}

	profile := &shared.FederatedProfile{
		ProviderID: payload.Subject,
	}
	if email, ok := payload.Claims["email"].(string); ok {
		profile.Email = email
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		profile.EmailVerified = verified
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		profile.Picture = picture
	}

	// Prefer the structured name claims; fall back to splitting the
	// display name on its first space.
	given, _ := payload.Claims["given_name"].(string)
	family, _ := payload.Claims["family_name"].(string)
	if given == "" && family == "" {
		if name, ok := payload.Claims["name"].(string); ok && name != "" {
			parts := strings.SplitN(name, " ", 2)
			given = parts[0]
			if len(parts) > 1 {
				family = parts[1]
			}
		}
	}
	profile.FirstName = given
	profile.LastName = family

	return profile, nil
}
