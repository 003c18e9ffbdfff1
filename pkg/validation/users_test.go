package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "1", want: 1},
		{raw: "007", want: 7},
		{raw: "0", want: 0},
		{raw: "9223372036854775807", want: 9223372036854775807},
		{raw: "", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "1.5", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: " 12", wantErr: true},
		{raw: "12a", wantErr: true},
		{raw: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := UserID(tt.raw)
			if tt.wantErr {
				var verr *Error
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, map[string]string{"id": "ID must be a valid number"}, verr.Details)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserUpdate_Normalizes(t *testing.T) {
	changes, err := UserUpdate(UserUpdateInput{
		Name:  strPtr("  Ada Lovelace  "),
		Email: strPtr("  Ada@Example.COM "),
		Role:  strPtr("admin"),
	})
	require.NoError(t, err)

	require.NotNil(t, changes.Name)
	assert.Equal(t, "Ada Lovelace", *changes.Name)
	require.NotNil(t, changes.Email)
	assert.Equal(t, "ada@example.com", *changes.Email)
	require.NotNil(t, changes.Role)
	assert.Equal(t, auth.RoleAdmin, *changes.Role)
}

func TestUserUpdate_AbsentFieldsStayAbsent(t *testing.T) {
	changes, err := UserUpdate(UserUpdateInput{Name: strPtr("Grace")})
	require.NoError(t, err)

	assert.NotNil(t, changes.Name)
	assert.Nil(t, changes.Email)
	assert.Nil(t, changes.Role)

	empty, err := UserUpdate(UserUpdateInput{})
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestUserUpdate_AggregatesFailures(t *testing.T) {
	_, err := UserUpdate(UserUpdateInput{
		Name:  strPtr(" a "),
		Email: strPtr("not-an-email"),
		Role:  strPtr("root"),
	})

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"name":  "Name must be at least 2 characters",
		"email": "Invalid email format",
		"role":  "Role must be either user or admin",
	}, verr.Details)
}

func TestUserUpdate_FieldRules(t *testing.T) {
	tests := []struct {
		name  string
		input UserUpdateInput
		field string
		msg   string
	}{
		{"blank name", UserUpdateInput{Name: strPtr("   ")}, "name", "Name must be at least 2 characters"},
		{"long name", UserUpdateInput{Name: strPtr(strings.Repeat("n", 256))}, "name", "Name must be less than 255 characters"},
		{"empty email", UserUpdateInput{Email: strPtr("")}, "email", "Invalid email format"},
		{"long email", UserUpdateInput{Email: strPtr(strings.Repeat("e", 250) + "@example.com")}, "email", "Email must be less than 255 characters"},
		{"empty role", UserUpdateInput{Role: strPtr("")}, "role", "Role must be either user or admin"},
		{"guest role", UserUpdateInput{Role: strPtr("guest")}, "role", "Role must be either user or admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UserUpdate(tt.input)
			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.msg, verr.Details[tt.field])
			assert.Len(t, verr.Details, 1)
		})
	}
}

func TestUserUpdate_BoundaryLengths(t *testing.T) {
	_, err := UserUpdate(UserUpdateInput{Name: strPtr("Al")})
	assert.NoError(t, err)

	_, err = UserUpdate(UserUpdateInput{Name: strPtr(strings.Repeat("n", 255))})
	assert.NoError(t, err)
}

func TestError_Message(t *testing.T) {
	err := &Error{Details: map[string]string{"role": "bad role", "email": "bad email"}}
	assert.Equal(t, "validation failed: email: bad email; role: bad role", err.Error())
}
