package users

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUser() *User {
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return &User{
		ID:        42,
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Password:  "$2a$10$abcdefghijklmnopqrstuv",
		Role:      auth.RoleAdmin,
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}
}

func TestUser_NeverSerializesPassword(t *testing.T) {
	user := sampleUser()

	for name, value := range map[string]interface{}{
		"user":    user,
		"public":  user.Public(),
		"created": user.Created(),
		"deleted": user.Deleted(),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(value)
			require.NoError(t, err)

			var fields map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &fields))
			assert.NotContains(t, fields, "password")
			assert.NotContains(t, string(data), user.Password)
		})
	}
}

func TestUser_Projections(t *testing.T) {
	user := sampleUser()

	public := user.Public()
	assert.Equal(t, user.ID, public.ID)
	assert.Equal(t, user.UpdatedAt, public.UpdatedAt)

	deleted := user.Deleted()
	assert.Equal(t, &Deleted{ID: 42, Email: "ada@example.com", Name: "Ada Lovelace", Role: auth.RoleAdmin}, deleted)

	assert.Equal(t, auth.Identity{ID: 42, Role: auth.RoleAdmin}, user.Identity())
}

func TestChanges_Fields(t *testing.T) {
	assert.True(t, Changes{}.Empty())
	assert.Empty(t, Changes{}.Fields())

	name := "Grace"
	role := auth.RoleUser
	changes := Changes{Name: &name, Role: &role}

	assert.False(t, changes.Empty())
	assert.Equal(t, []string{"name", "role"}, changes.Fields())
}
