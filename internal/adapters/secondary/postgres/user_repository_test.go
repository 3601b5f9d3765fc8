package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpos/callcenter-backend/internal/core/domain"
	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
)

func TestUserRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	userRepo := NewUserRepository(testPool)

	email := "agent-" + uuid.NewString() + "@example.com"
	newUser, err := domain.NewUser(domain.UserRegistrationParams{
		Name:     "Test Agent",
		Email:    email,
		Password: "Password1",
		Role:     domain.RoleAgent,
		BranchID: "branch-1",
	})
	require.NoError(t, err)

	createdUser, err := userRepo.Create(ctx, newUser)
	require.NoError(t, err, "Failed to create user")

	foundUser, err := userRepo.GetByEmail(ctx, email)
	require.NoError(t, err, "Failed to get user by email")

	assert.Equal(t, createdUser.ID, foundUser.ID)
	assert.Equal(t, "Test Agent", foundUser.Name)
	assert.Equal(t, domain.RoleAgent, foundUser.Role)
	assert.Equal(t, "branch-1", foundUser.BranchID)
	assert.True(t, foundUser.IsActive)
	assert.Nil(t, foundUser.LastLoginAt)

	foundUserByID, err := userRepo.GetByID(ctx, createdUser.ID)
	require.NoError(t, err, "Failed to get user by ID")
	assert.Equal(t, createdUser.ID, foundUserByID.ID)
}

func TestUserRepository_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	userRepo := NewUserRepository(testPool)

	newUser, err := domain.NewUser(domain.UserRegistrationParams{
		Name:     "Login User",
		Email:    "login-" + uuid.NewString() + "@example.com",
		Password: "Password1",
		Role:     domain.RoleCashier,
		BranchID: "branch-1",
	})
	require.NoError(t, err)

	created, err := userRepo.Create(ctx, newUser)
	require.NoError(t, err)

	require.NoError(t, userRepo.UpdateLastLogin(ctx, created.ID))

	found, err := userRepo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	ctx := context.Background()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	userRepo := NewUserRepository(testPool)

	_, err := userRepo.GetByEmail(ctx, "nonexistent@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
