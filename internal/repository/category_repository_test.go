package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

func TestCategoryCreateUpdateDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO category (category_id, lantai, created_at)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE category SET lantai = $1 WHERE category_id = $2")).
		WithArgs("Lantai 3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM category WHERE category_id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	category := &models.Category{Lantai: "Lantai 2"}
	require.NoError(t, repo.Create(context.Background(), category))
	require.NotEmpty(t, category.ID)

	category.Lantai = "Lantai 3"
	require.NoError(t, repo.Update(context.Background(), category))
	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
