package handlers

import "time"

const (
	ErrInvalidJSON         = "Invalid JSON body"
	ErrInternalServerError = "Internal server error"
	ErrOAuthNotConfigured  = "OAuth provider not configured"
)

const (
	oauthStateCookieName    = "oauth_state"
	oauthProviderCookieName = "oauth_provider"
	oauthCookieTTL          = 10 * time.Minute

	authorizationHeaderName = "Authorization"
	accessTokenQueryParam   = "access_token"

	maxJSONBodyBytes   = 1 << 20
	streamWriteTimeout = 10 * time.Second
	dayLayout          = "2006-01-02"
	minQRSize          = 64
	maxQRSize          = 1024
)
