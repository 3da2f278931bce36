package console

import (
	"context"
	"errors"
	"fmt"

	"admin-console/internal/guard"
	"admin-console/internal/model"
	"admin-console/internal/resource"
	"admin-console/pkg/apierror"
)

const sessionExpiredNotice = "Your session has expired. Please log in again."

// Describe turns an error into the line shown to the user. It returns "" for
// errors that need no message.
func Describe(err error) string {
	switch {
	case err == nil, errors.Is(err, resource.ErrStale), errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, resource.ErrReload):
		return "Saved, but the list could not be refreshed. " + describeCall(err)
	case errors.Is(err, resource.ErrNoPage):
		return "There is no such page."
	case errors.Is(err, guard.ErrUnauthenticated):
		return "Please log in first."
	case errors.Is(err, model.ErrInvalidPage):
		return "Page and page size must be at least 1."
	}
	return describeCall(err)
}

func describeCall(err error) string {
	apiErr, ok := apierror.As(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return "The request timed out. Check your connection and try again."
		}
		// Anything else was produced locally, usually bad command input.
		return err.Error()
	}

	switch apiErr.Kind {
	case apierror.KindUnauthorized:
		return sessionExpiredNotice
	case apierror.KindNetwork:
		msg := "Network error. Check your connection and try again."
		if apiErr.RequestID != "" {
			msg += fmt.Sprintf(" (request %s)", apiErr.RequestID)
		}
		return msg
	}

	switch apiErr.Code {
	case apierror.CodeParam:
		return "Invalid input: " + apiErr.Message
	case apierror.CodeForbidden:
		return "You do not have permission to do this."
	case apierror.CodeNotFound:
		return "Not found: " + apiErr.Message
	case apierror.CodeInternal:
		return "The server could not handle the request. Try again later."
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return fmt.Sprintf("Request failed (code %d).", apiErr.Code)
}
