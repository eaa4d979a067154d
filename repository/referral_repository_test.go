package repository

import (
	"context"
	"testing"

	"contestbot/models"
	"contestbot/repository/testutil"
	"contestbot/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupReferralTest(t *testing.T) (*UserRepository, *ReferralRepository, context.Context) {
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	referralRepo := NewReferralRepository(testDB.DB)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 10} {
		_, err := userRepo.Create(ctx, id, "", "User", nil)
		require.NoError(t, err)
	}

	return userRepo, referralRepo, ctx
}

func TestReferralRepository_CreatePending(t *testing.T) {
	_, repo, ctx := setupReferralTest(t)

	t.Run("creates a pending edge", func(t *testing.T) {
		ref, err := repo.CreatePending(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, models.ReferralStatusPending, ref.Status)
		assert.Nil(t, ref.CompletedAt)
	})

	t.Run("same pair is a duplicate", func(t *testing.T) {
		_, err := repo.CreatePending(ctx, 1, 10)
		assert.ErrorIs(t, err, service.ErrDuplicateReferral)
	})

	t.Run("different referrer is still a duplicate", func(t *testing.T) {
		_, err := repo.CreatePending(ctx, 2, 10)
		assert.ErrorIs(t, err, service.ErrDuplicateReferral)
	})
}

func TestReferralRepository_GetPendingByReferred(t *testing.T) {
	_, repo, ctx := setupReferralTest(t)

	t.Run("nil when none", func(t *testing.T) {
		ref, err := repo.GetPendingByReferred(ctx, 10)
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("finds the pending edge", func(t *testing.T) {
		_, err := repo.CreatePending(ctx, 1, 10)
		require.NoError(t, err)

		ref, err := repo.GetPendingByReferred(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, int64(1), ref.ReferrerTelegramID)
	})

	t.Run("completed edge is not pending", func(t *testing.T) {
		fired, err := repo.Complete(ctx, 1, 10)
		require.NoError(t, err)
		require.True(t, fired)

		ref, err := repo.GetPendingByReferred(ctx, 10)
		require.NoError(t, err)
		assert.Nil(t, ref)
	})
}

func TestReferralRepository_CompleteFiresOnce(t *testing.T) {
	_, repo, ctx := setupReferralTest(t)

	_, err := repo.CreatePending(ctx, 1, 10)
	require.NoError(t, err)

	fired, err := repo.Complete(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, fired)

	// A racing double completion sees no pending edge
	fired, err = repo.Complete(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, fired)

	completed, err := repo.GetAllCompleted(ctx)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.NotNil(t, completed[0].CompletedAt)
}

func TestReferralRepository_CompleteWrongPair(t *testing.T) {
	_, repo, ctx := setupReferralTest(t)

	_, err := repo.CreatePending(ctx, 1, 10)
	require.NoError(t, err)

	fired, err := repo.Complete(ctx, 2, 10)
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestReferralRepository_Invalidate(t *testing.T) {
	_, repo, ctx := setupReferralTest(t)

	_, err := repo.CreatePending(ctx, 1, 10)
	require.NoError(t, err)

	t.Run("pending edge cannot be invalidated", func(t *testing.T) {
		fired, err := repo.Invalidate(ctx, 1, 10)
		require.NoError(t, err)
		assert.False(t, fired)
	})

	t.Run("completed edge can, once", func(t *testing.T) {
		fired, err := repo.Complete(ctx, 1, 10)
		require.NoError(t, err)
		require.True(t, fired)

		fired, err = repo.Invalidate(ctx, 1, 10)
		require.NoError(t, err)
		assert.True(t, fired)

		// Invalid is terminal
		fired, err = repo.Invalidate(ctx, 1, 10)
		require.NoError(t, err)
		assert.False(t, fired)
	})
}

func TestReferralRepository_CountByStatus(t *testing.T) {
	_, repo, ctx := setupReferralTest(t)

	_, err := repo.CreatePending(ctx, 1, 10)
	require.NoError(t, err)

	count, err := repo.CountByStatus(ctx, models.ReferralStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountByStatus(ctx, models.ReferralStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
