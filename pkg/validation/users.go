package validation

import (
	"regexp"
	"strconv"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/users"
)

const (
	msgInvalidID    = "ID must be a valid number"
	msgNameTooShort = "Name must be at least 2 characters"
	msgNameTooLong  = "Name must be less than 255 characters"
	msgInvalidEmail = "Invalid email format"
	msgEmailTooLong = "Email must be less than 255 characters"
	msgInvalidRole  = "Role must be either user or admin"
)

var userIDPattern = regexp.MustCompile(`^\d+$`)

// UserUpdateInput is the raw body of a user update request.
// Absent and null fields decode to nil.
type UserUpdateInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

// UserID validates a path identifier and converts it to an integer
func UserID(raw string) (int64, error) {
	err := ozzo.Validate(raw,
		ozzo.Required.Error(msgInvalidID),
		ozzo.Match(userIDPattern).Error(msgInvalidID),
	)
	if err != nil {
		return 0, Field("id", msgInvalidID)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// digits only, so the value overflowed int64
		return 0, Field("id", msgInvalidID)
	}
	return id, nil
}

// UserUpdate validates and normalizes a partial update.
// All failing fields are reported together.
func UserUpdate(in UserUpdateInput) (users.Changes, error) {
	var changes users.Changes
	errs := ozzo.Errors{}

	if in.Name != nil {
		name := normalizeName(*in.Name)
		errs["name"] = ozzo.Validate(name, nameRules()...)
		changes.Name = &name
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		errs["email"] = ozzo.Validate(email, emailRules()...)
		changes.Email = &email
	}

	if in.Role != nil {
		errs["role"] = ozzo.Validate(*in.Role, roleRules()...)
		role := auth.Role(*in.Role)
		changes.Role = &role
	}

	if err := fromErrors(errs); err != nil {
		return users.Changes{}, err
	}
	return changes, nil
}

func normalizeName(raw string) string {
	return strings.TrimSpace(raw)
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func nameRules() []ozzo.Rule {
	return []ozzo.Rule{
		ozzo.Required.Error(msgNameTooShort),
		ozzo.RuneLength(2, 0).Error(msgNameTooShort),
		ozzo.RuneLength(0, 255).Error(msgNameTooLong),
	}
}

func emailRules() []ozzo.Rule {
	return []ozzo.Rule{
		ozzo.Required.Error(msgInvalidEmail),
		ozzo.RuneLength(0, 255).Error(msgEmailTooLong),
		is.Email.Error(msgInvalidEmail),
	}
}

func roleRules() []ozzo.Rule {
	return []ozzo.Rule{
		ozzo.Required.Error(msgInvalidRole),
		ozzo.In(string(auth.RoleUser), string(auth.RoleAdmin)).Error(msgInvalidRole),
	}
}
