package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/platinummonkey/acquisitions/pkg/accounts"
	"github.com/platinummonkey/acquisitions/pkg/httputil"
	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/users"
	"github.com/platinummonkey/acquisitions/pkg/validation"
)

// Error titles and messages specific to the account and user routes
const (
	titleDuplicateEmail   = "Email already exist"
	msgDuplicateEmail     = "User with this email already exists"
	titleInvalidCreds     = "Invalid credentials"
	msgInvalidCreds       = "Invalid email or password"
	titleUserNotFound     = "User not found"
	msgUserNotFoundFormat = "User with ID %d does not exist"
)

// writeServiceError maps a service or validation error onto the HTTP error
// taxonomy. Unclassified errors are logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		httputil.WriteValidationError(w, validationSummary(verr), verr.Details)
	case errors.Is(err, accounts.ErrDuplicateUser), errors.Is(err, users.ErrDuplicateEmail):
		httputil.WriteConflict(w, titleDuplicateEmail, msgDuplicateEmail)
	case errors.Is(err, accounts.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, titleInvalidCreds, msgInvalidCreds)
	case errors.Is(err, users.ErrNotFound):
		httputil.WriteNotFound(w, titleUserNotFound, "User does not exist")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("Unhandled service error")
		httputil.WriteInternalError(w, "")
	}
}

// writeUserError is writeServiceError with the user id in the not found message
func writeUserError(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, users.ErrNotFound) {
		httputil.WriteNotFound(w, titleUserNotFound, fmt.Sprintf(msgUserNotFoundFormat, id))
		return
	}
	writeServiceError(w, r, err)
}

// validationSummary joins the field messages in field order
func validationSummary(verr *validation.Error) string {
	fields := make([]string, 0, len(verr.Details))
	for field := range verr.Details {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, verr.Details[field])
	}
	return strings.Join(messages, ", ")
}
