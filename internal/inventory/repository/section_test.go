package repository

import (
	"context"
	"testing"

	"github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/foodtrack/foodtrack-backend/pkg/testutil"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionCreateDuplicateCode(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := NewSectionRepository(mockDB.DB)

	mockDB.ExpectQuery(`INSERT INTO sections`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &Section{Code: "KITCHEN", Name: "Main Kitchen"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	mockDB.ExpectationsWereMet(t)
}

func TestSectionGetByIDNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := NewSectionRepository(mockDB.DB)

	mockDB.ExpectQuery(`FROM sections WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(testutil.MockRows("id", "code", "name", "created_at"))

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}
