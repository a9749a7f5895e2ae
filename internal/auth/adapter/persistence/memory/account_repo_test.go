package memory

import (
	"context"
	"testing"

	"gym-assistant/internal/auth/domain/model"
	apperrors "gym-assistant/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()

	account := &model.Account{ID: "a1", Email: "Lifter@Example.com"}
	require.NoError(t, repo.Create(ctx, account))
	assert.False(t, account.CreatedAt.IsZero())

	got, err := repo.GetByEmail(ctx, "lifter@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	got.DisplayName = "changed without update"
	again, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, again.DisplayName)

	assert.ErrorIs(t, repo.Create(ctx, &model.Account{ID: "a2", Email: "lifter@example.com"}), apperrors.ErrConflict)

	again.DisplayName = "Lifter"
	require.NoError(t, repo.Update(ctx, again))
	got, err = repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Lifter", got.DisplayName)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &model.Account{ID: "missing"}), apperrors.ErrAccountNotFound)
}
