package service

import (
	"context"
	"strings"
	"testing"

	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) ByEmail(ctx context.Context, email string) (models.Author, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.Author), args.Error(1)
}

func (m *mockDirectory) UsersByID(ctx context.Context, ids []string) ([]models.Author, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Author), args.Error(1)
}

func TestProfileService_ByEmail(t *testing.T) {
	t.Parallel()

	t.Run("normalizes before lookup", func(t *testing.T) {
		t.Parallel()
		dir := new(mockDirectory)
		want := models.Author{ID: "user_a", Username: "jane.doe"}
		dir.On("ByEmail", mock.Anything, "jane.doe@gmail.com").Return(want, nil)

		got, err := NewProfileService(dir).ByEmail(context.Background(), "  Jane.Doe@Gmail.com ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		dir.AssertExpectations(t)
	})

	t.Run("invalid email never reaches provider", func(t *testing.T) {
		t.Parallel()
		dir := new(mockDirectory)

		_, err := NewProfileService(dir).ByEmail(context.Background(), "not-an-email")
		appErr := assertCode(t, err, models.CodeValidation)
		assert.Contains(t, appErr.Fields, "email")
		dir.AssertNotCalled(t, "ByEmail", mock.Anything, mock.Anything)
	})

	t.Run("not found passes through", func(t *testing.T) {
		t.Parallel()
		dir := new(mockDirectory)
		dir.On("ByEmail", mock.Anything, "ghost@example.com").
			Return(models.Author{}, &models.AppError{Code: models.CodeNotFound, Message: "user not found"})

		_, err := NewProfileService(dir).ByEmail(context.Background(), "ghost@example.com")
		assertCode(t, err, models.CodeNotFound)
	})
}

func TestProfileService_UsersByID(t *testing.T) {
	t.Parallel()

	t.Run("drops blank ids", func(t *testing.T) {
		t.Parallel()
		dir := new(mockDirectory)
		want := []models.Author{{ID: "a"}, {ID: "b"}}
		dir.On("UsersByID", mock.Anything, []string{"a", "b"}).Return(want, nil)

		got, err := NewProfileService(dir).UsersByID(context.Background(), []string{"a", " ", "b"})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		dir.AssertExpectations(t)
	})

	t.Run("requires an id", func(t *testing.T) {
		t.Parallel()
		dir := new(mockDirectory)
		_, err := NewProfileService(dir).UsersByID(context.Background(), nil)
		assertCode(t, err, models.CodeValidation)
		dir.AssertNotCalled(t, "UsersByID", mock.Anything, mock.Anything)
	})

	t.Run("bounded", func(t *testing.T) {
		t.Parallel()
		ids := strings.Split(strings.Repeat("x,", maxProfileIDs+1), ",")
		_, err := NewProfileService(new(mockDirectory)).UsersByID(context.Background(), ids)
		assertCode(t, err, models.CodeValidation)
	})
}
