// Package validation checks and normalizes inbound identifiers and request
// payloads before any business logic runs.
//
// Every validator reports all failing fields at once through *Error, whose
// Details map is rendered verbatim in 400 responses:
//
//	changes, err := validation.UserUpdate(input)
//	var verr *validation.Error
//	if errors.As(err, &verr) {
//		// verr.Details == map[string]string{"name": "...", "email": "..."}
//	}
//
// Rules are expressed with github.com/go-ozzo/ozzo-validation.
package validation
