package auth

import "errors"

var (
	ErrUserExists          = errors.New("auth: user already exists")
	ErrUserNotFound        = errors.New("auth: user not found")
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrInvalidInput        = errors.New("auth: invalid input")
	ErrInvalidToken        = errors.New("auth: invalid token")
	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")
	ErrNoRefreshToken      = errors.New("auth: refresh token not provided")
)

// EmailError attaches the offending email to a domain error so callers can
// surface it without parsing message strings.
type EmailError struct {
	Email string
	Err   error
}

func (e *EmailError) Error() string { return e.Err.Error() + ": " + e.Email }

func (e *EmailError) Unwrap() error { return e.Err }

func withEmail(err error, email string) error {
	return &EmailError{Email: email, Err: err}
}

// EmailFromError extracts the email carried by a domain error, if any.
func EmailFromError(err error) string {
	var ee *EmailError
	if errors.As(err, &ee) {
		return ee.Email
	}
	return ""
}
