package receptionists

import "errors"

var (
	ErrNotFound           = errors.New("receptionists: account not found")
	ErrUsernameTaken      = errors.New("receptionists: username already registered")
	ErrInvalidInput       = errors.New("receptionists: invalid input")
	ErrInvalidCredentials = errors.New("receptionists: invalid username or password")
	ErrNotApproved        = errors.New("receptionists: account awaiting administrator approval")
	ErrAdminDisabled      = errors.New("receptionists: admin login not configured")
)
