package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/mkarlin/storefront-api/internal/config"
	"github.com/mkarlin/storefront-api/internal/model"
)

// Token is the subset of identity-provider claims the rest of the
// service cares about.
type Token struct {
	UID   string
	Email string
	Name  string
	Role  model.Role
}

// Client wraps the Firebase Auth client behind the two operations the
// services need: token verification and role-claim assignment.
type Client struct {
	client *fbauth.Client
}

func NewClient(ctx context.Context, cfg config.FirebaseConfig) (*Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	decoded, err := c.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	t := &Token{UID: decoded.UID}
	if v, ok := decoded.Claims["email"].(string); ok {
		t.Email = v
	}
	if v, ok := decoded.Claims["name"].(string); ok {
		t.Name = v
	}
	var role string
	if v, ok := decoded.Claims["role"].(string); ok {
		role = v
	}
	t.Role = model.ParseRole(role)
	return t, nil
}

// SetRoleClaim writes the role custom claim; it shows up in ID tokens
// minted after the user's next sign-in.
func (c *Client) SetRoleClaim(ctx context.Context, uid string, role model.Role) error {
	claims := map[string]interface{}{"role": string(role)}
	if err := c.client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		return fmt.Errorf("set role claim: %w", err)
	}
	return nil
}
