package client

import (
	"context"
	"encoding/json"
	"io"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
)

// Client is the transport contract to the remote content service. Every
// error it returns is a *CMSError.
type Client interface {
	FetchCollection(ctx context.Context, kind models.Kind, filter models.Filter) (json.RawMessage, error)
	FetchByID(ctx context.Context, kind models.Kind, id models.ID) (json.RawMessage, error)
	Create(ctx context.Context, kind models.Kind, attributes map[string]any) (json.RawMessage, error)
	Update(ctx context.Context, kind models.Kind, id models.ID, attributes map[string]any) (json.RawMessage, error)
	Delete(ctx context.Context, kind models.Kind, id models.ID) error
	UploadAsset(ctx context.Context, filename string, r io.Reader) (*models.Asset, error)

	Login(ctx context.Context, credentials models.Credentials) (*models.AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
	User(ctx context.Context, id models.FlexID) (*models.User, error)
}

// TokenSource yields the bearer token for outgoing requests; "" means none.
type TokenSource interface {
	Token(ctx context.Context) string
}

// SessionInvalidator is told when the service rejected the credentials.
type SessionInvalidator interface {
	Invalidate(ctx context.Context)
}

// Session is what the client needs from the session owner.
type Session interface {
	TokenSource
	SessionInvalidator
}

type tokenOverrideKey struct{}

// WithToken makes requests issued with the returned context use token
// instead of the bound TokenSource.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenOverrideKey{}, token)
}

func tokenOverride(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenOverrideKey{}).(string)
	return t, ok
}
