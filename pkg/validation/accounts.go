package validation

import (
	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/platinummonkey/acquisitions/pkg/accounts"
	"github.com/platinummonkey/acquisitions/pkg/auth"
)

const (
	msgPasswordTooShort = "Password must be at least 6 characters"
	msgPasswordTooLong  = "Password must be at most 72 characters"
	msgPasswordRequired = "Password is required"
)

// SignupRequest is the raw body of a sign-up request
type SignupRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     *string `json:"role"`
}

// SigninRequest is the raw body of a sign-in request
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup validates a sign-up body. Role defaults to user.
func Signup(in SignupRequest) (accounts.SignupInput, error) {
	out := accounts.SignupInput{
		Name:     normalizeName(in.Name),
		Email:    normalizeEmail(in.Email),
		Password: in.Password,
		Role:     auth.RoleUser,
	}

	errs := ozzo.Errors{
		"name":  ozzo.Validate(out.Name, nameRules()...),
		"email": ozzo.Validate(out.Email, emailRules()...),
		"password": ozzo.Validate(out.Password,
			ozzo.Required.Error(msgPasswordTooShort),
			ozzo.RuneLength(6, 0).Error(msgPasswordTooShort),
			ozzo.Length(0, 72).Error(msgPasswordTooLong),
		),
	}
	if in.Role != nil {
		errs["role"] = ozzo.Validate(*in.Role, roleRules()...)
		out.Role = auth.Role(*in.Role)
	}

	if err := fromErrors(errs); err != nil {
		return accounts.SignupInput{}, err
	}
	return out, nil
}

// Signin validates a sign-in body
func Signin(in SigninRequest) (accounts.SigninInput, error) {
	out := accounts.SigninInput{
		Email:    normalizeEmail(in.Email),
		Password: in.Password,
	}

	errs := ozzo.Errors{
		"email": ozzo.Validate(out.Email,
			ozzo.Required.Error(msgInvalidEmail),
			is.Email.Error(msgInvalidEmail),
		),
		"password": ozzo.Validate(out.Password, ozzo.Required.Error(msgPasswordRequired)),
	}

	if err := fromErrors(errs); err != nil {
		return accounts.SigninInput{}, err
	}
	return out, nil
}
