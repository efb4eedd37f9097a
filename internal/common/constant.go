// Package common contains names shared between the content client and the
// session manager.
package common

// Durable storage keys of the admin session.
const (
	TokenStorageKey = "cms_jwt_token"
	UserStorageKey  = "cms_user"
)

// HTTP header names set on outbound CMS requests.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
	BearerPrefix            = "Bearer "
)
