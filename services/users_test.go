package services

import (
	"context"
	"strings"
	"testing"

	"battery-erp-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Authenticate(ctx, " staff ", "staff-pass")
	require.NoError(t, err)
	assert.Equal(t, env.actors.staff.ID, user.ID)
	require.NotNil(t, user.LastLogin)

	_, err = env.users.Authenticate(ctx, "staff", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.users.Authenticate(ctx, "nobody", "staff-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.users.ToggleActive(ctx, env.actors.admin, env.actors.staff.ID)
	require.NoError(t, err)
	_, err = env.users.Authenticate(ctx, "staff", "staff-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "inactive accounts cannot log in")
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Create(ctx, env.actors.admin, CreateUserInput{
		Username: "bench2",
		FullName: "Second Bench",
		Role:     models.RoleTechnician,
		Password: "solder1",
	})
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.NotEqual(t, "solder1", user.Password)

	_, err = env.users.Authenticate(ctx, "bench2", "solder1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   models.Actor
		input   CreateUserInput
		wantErr error
	}{
		{"staff denied", env.actors.staff, CreateUserInput{Username: "x", FullName: "X", Role: models.RoleTechnician, Password: "secret1"}, ErrPermissionDenied},
		{"duplicate", env.actors.admin, CreateUserInput{Username: "bench2", FullName: "X", Role: models.RoleTechnician, Password: "secret1"}, ErrValidation},
		{"bad role", env.actors.admin, CreateUserInput{Username: "x", FullName: "X", Role: "owner", Password: "secret1"}, ErrValidation},
		{"short password", env.actors.admin, CreateUserInput{Username: "x", FullName: "X", Role: models.RoleAdmin, Password: "abc"}, ErrValidation},
		{"missing name", env.actors.admin, CreateUserInput{Username: "x", Role: models.RoleAdmin, Password: "secret1"}, ErrValidation},
		{"long username", env.actors.admin, CreateUserInput{Username: strings.Repeat("u", 65), FullName: "X", Role: models.RoleAdmin, Password: "secret1"}, ErrValidation},
		{"long full name", env.actors.admin, CreateUserInput{Username: "x", FullName: strings.Repeat("f", 101), Role: models.RoleAdmin, Password: "secret1"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.Create(ctx, tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestToggleActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users.ToggleActive(ctx, env.actors.admin, env.actors.admin.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.users.ToggleActive(ctx, env.actors.admin, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	off, err := env.users.ToggleActive(ctx, env.actors.admin, env.actors.tech.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)
	on, err := env.users.ToggleActive(ctx, env.actors.admin, env.actors.tech.ID)
	require.NoError(t, err)
	assert.True(t, on.Active)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", env.actors.staff.ID).
		Update("password_reset_required", true).Error)

	err := env.users.ChangePassword(ctx, env.actors.staff, "wrong", "newpass1")
	assert.ErrorIs(t, err, ErrValidation)
	err = env.users.ChangePassword(ctx, env.actors.staff, "staff-pass", "abc")
	assert.ErrorIs(t, err, ErrValidation)
	err = env.users.ChangePassword(ctx, models.Actor{}, "staff-pass", "newpass1")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, env.users.ChangePassword(ctx, env.actors.staff, "staff-pass", "newpass1"))

	user, err := env.users.Authenticate(ctx, "staff", "newpass1")
	require.NoError(t, err)
	assert.False(t, user.PasswordResetRequired)
}

func TestSeedDefaultUsers(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, users.SeedDefaults(ctx))
	require.NoError(t, users.SeedDefaults(ctx))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	admin, err := users.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
}
