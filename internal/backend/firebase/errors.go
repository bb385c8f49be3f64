package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"todosync/internal/service"
)

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}

	// Identity Toolkit reports failures as upper-case codes in the message
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		switch {
		case strings.HasPrefix(msg, "EMAIL_EXISTS"):
			return service.ErrEmailExists
		case strings.HasPrefix(msg, "EMAIL_NOT_FOUND"),
			strings.HasPrefix(msg, "INVALID_PASSWORD"),
			strings.HasPrefix(msg, "INVALID_LOGIN_CREDENTIALS"),
			strings.HasPrefix(msg, "USER_DISABLED"):
			return service.ErrInvalidCredentials
		case strings.HasPrefix(msg, "INVALID_ID_TOKEN"),
			strings.HasPrefix(msg, "TOKEN_EXPIRED"),
			strings.HasPrefix(msg, "USER_NOT_FOUND"):
			return service.ErrSessionExpired
		case strings.HasPrefix(msg, "WEAK_PASSWORD"):
			return fmt.Errorf("password is too weak")
		case strings.HasPrefix(msg, "INVALID_EMAIL"):
			return fmt.Errorf("invalid email address")
		}
		return fmt.Errorf("identity service: %s", msg)
	}

	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("request timed out")
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("permission denied or session expired (run: todosync login)")
	case codes.NotFound:
		return service.ErrNotFound
	case codes.Unavailable:
		return fmt.Errorf("backend unavailable: %w", err)
	}

	return err
}
