package usecase

import "errors"

var (
	// ErrValidation indicates malformed input. It is wrapped with the offending detail.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidRole indicates a role outside the supported set.
	ErrInvalidRole = errors.New("invalid role")
	// ErrUsernameTaken indicates registration hit an existing account.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials indicates the password does not match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRecordExists indicates a record identifier collision on create.
	ErrRecordExists = errors.New("record already exists")
	// ErrRecordNotFound indicates the record does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidAccessToken indicates the access token is malformed or its signature is invalid.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
	// ErrRevokedAccessToken indicates the access token was revoked before expiry.
	ErrRevokedAccessToken = errors.New("access token revoked")
)
