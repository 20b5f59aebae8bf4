// Package source holds errors shared by the mail-source clients.
package source

import (
	"errors"
	"fmt"
)

// AuthError indicates that authentication failed or expired against the
// mail server.
type AuthError struct {
	Server  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Server, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
