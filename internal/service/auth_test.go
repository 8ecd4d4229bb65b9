package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

const testSecret = "test-secret"

func TestLoginAndValidate(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	alice := testhelpers.CreateUser(t, db, "alice", models.RoleUser)
	auth := service.NewAuthService(db, testSecret, time.Hour, nil)
	ctx := context.Background()

	token, err := auth.Login(ctx, "ALICE@example.com", testhelpers.TestPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	testhelpers.CreateUser(t, db, "alice", models.RoleUser)
	auth := service.NewAuthService(db, testSecret, time.Hour, nil)
	ctx := context.Background()

	_, err := auth.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, service.ErrInvalid)

	_, err = auth.Login(ctx, "nobody@example.com", testhelpers.TestPassword)
	assert.ErrorIs(t, err, service.ErrInvalid)
}

func TestValidateTokenReloadsRole(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	alice := testhelpers.CreateUser(t, db, "alice", models.RoleUser)
	auth := service.NewAuthService(db, testSecret, time.Hour, nil)
	ctx := context.Background()

	token, err := auth.IssueToken(alice)
	require.NoError(t, err)
	require.NoError(t, db.Model(alice).Update("role", models.RoleAdmin).Error)

	claims, err := auth.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	require.NoError(t, db.Delete(alice).Error)
	_, err = auth.ValidateToken(ctx, token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsForgedAndExpired(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	alice := testhelpers.CreateUser(t, db, "alice", models.RoleUser)
	ctx := context.Background()

	other := service.NewAuthService(db, "other-secret", time.Hour, nil)
	forged, err := other.IssueToken(alice)
	require.NoError(t, err)

	auth := service.NewAuthService(db, testSecret, time.Hour, nil)
	_, err = auth.ValidateToken(ctx, forged)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "expired",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UserID: alice.ID,
		Role:   alice.Role,
	})
	signed, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = auth.ValidateToken(ctx, signed)
	assert.Error(t, err)

	_, err = auth.ValidateToken(ctx, "garbage")
	assert.Error(t, err)
}

func TestLogoutRevokesToken(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	alice := testhelpers.CreateUser(t, db, "alice", models.RoleUser)
	auth := service.NewAuthService(db, testSecret, time.Hour, service.NewMemoryTokenStore())
	ctx := context.Background()

	first, err := auth.IssueToken(alice)
	require.NoError(t, err)
	second, err := auth.IssueToken(alice)
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, first))

	_, err = auth.ValidateToken(ctx, first)
	assert.Error(t, err)
	_, err = auth.ValidateToken(ctx, second)
	assert.NoError(t, err)

	assert.ErrorIs(t, auth.Logout(ctx, "garbage"), service.ErrUnauthorized)
}

func TestMemoryTokenStoreExpires(t *testing.T) {
	store := service.NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "a", time.Hour))
	require.NoError(t, store.Revoke(ctx, "b", 0))

	revoked, err := store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "b")
	require.NoError(t, err)
	assert.False(t, revoked)
}
