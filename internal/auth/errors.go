package auth

import "errors"

var (
	ErrAccessTokenInvalid  = errors.New("invalid access token")
	ErrRefreshTokenInvalid = errors.New("invalid refresh token")
)
