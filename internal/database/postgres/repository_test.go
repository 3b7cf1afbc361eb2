package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/redirectd/redirectd/internal/database"
	"github.com/redirectd/redirectd/internal/models"
)

var errUnknown = errors.New("unknown error")

var columns = []string{
	"id", "source_uri_path", "source_uri_path_hash",
	"target_uri_path", "target_uri_path_hash",
	"status_code", "host", "hit_counter", "last_hit",
	"creator", "comment", "type",
	"start_date_time", "end_date_time",
	"created_at", "last_modified_at", "version",
}

func setupRedirectRepository(t testing.TB) (*RedirectRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	repo := NewRedirectRepository(db)

	t.Cleanup(func() {
		mockDB.Close()
		db.Close()
	})

	return repo, mock
}

func testRedirect(t testing.TB) *models.Redirect {
	t.Helper()

	redirect, err := models.NewRedirect(models.RedirectParams{
		SourceURIPath: "/old/page/",
		TargetURIPath: "/new/page/",
		StatusCode:    301,
		Host:          "example.com",
	}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	return redirect
}

func redirectRow(redirect *models.Redirect, id, version int64) *sqlmock.Rows {
	return sqlmock.NewRows(columns).AddRow(
		id, redirect.SourceURIPath, redirect.SourceURIPathHash,
		redirect.TargetURIPath, redirect.TargetURIPathHash,
		redirect.StatusCode, "example.com", redirect.HitCounter, redirect.LastHit,
		redirect.Creator, redirect.Comment, string(redirect.Type),
		redirect.StartDateTime, redirect.EndDateTime,
		redirect.CreatedAt, redirect.LastModifiedAt, version,
	)
}

func TestRedirectRepository_Create(t *testing.T) {
	t.Run("identity collision", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)
		redirect := testRedirect(t)

		mock.ExpectQuery(`INSERT INTO redirects`).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		created, err := repo.Create(context.TODO(), redirect)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrRedirectExists)
		assert.Nil(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)
		redirect := testRedirect(t)

		mock.ExpectQuery(`INSERT INTO redirects`).
			WillReturnError(errUnknown)

		created, err := repo.Create(context.TODO(), redirect)

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)
		redirect := testRedirect(t)

		mock.ExpectQuery(`INSERT INTO redirects`).
			WillReturnRows(redirectRow(redirect, 1, 1))

		created, err := repo.Create(context.TODO(), redirect)

		assert.NoError(t, err)
		assert.NotNil(t, created)
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, int64(1), created.Version)
		assert.Equal(t, redirect.SourceURIPath, created.SourceURIPath)
		assert.Equal(t, redirect.SourceURIPathHash, created.SourceURIPathHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedirectRepository_GetBySource(t *testing.T) {
	t.Run("redirect not found", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)

		mock.ExpectQuery(`SELECT \* FROM redirects`).
			WithArgs(models.HashURIPath("missing"), "example.com").
			WillReturnError(sql.ErrNoRows)

		redirect, err := repo.GetBySource(context.TODO(), models.HashURIPath("missing"), "example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrRedirectNotFound)
		assert.Nil(t, redirect)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)
		want := testRedirect(t)

		mock.ExpectQuery(`SELECT \* FROM redirects`).
			WithArgs(want.SourceURIPathHash, "example.com").
			WillReturnRows(redirectRow(want, 1, 1))

		redirect, err := repo.GetBySource(context.TODO(), want.SourceURIPathHash, "example.com")

		assert.NoError(t, err)
		assert.NotNil(t, redirect)
		assert.Equal(t, want.TargetURIPath, redirect.TargetURIPath)
		assert.Equal(t, want.StatusCode, redirect.StatusCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedirectRepository_ListByTarget(t *testing.T) {
	t.Run("empty result", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)

		mock.ExpectQuery(`SELECT \* FROM redirects`).
			WithArgs(models.HashURIPath("new/page")).
			WillReturnRows(sqlmock.NewRows(columns))

		redirects, err := repo.ListByTarget(context.TODO(), models.HashURIPath("new/page"), "")

		assert.NoError(t, err)
		assert.Empty(t, redirects)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("host scoped", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)
		want := testRedirect(t)

		mock.ExpectQuery(`SELECT \* FROM redirects`).
			WithArgs(want.TargetURIPathHash, "example.com").
			WillReturnRows(redirectRow(want, 1, 1))

		redirects, err := repo.ListByTarget(context.TODO(), want.TargetURIPathHash, "example.com")

		assert.NoError(t, err)
		assert.Len(t, redirects, 1)
		assert.Equal(t, want.SourceURIPath, redirects[0].SourceURIPath)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedirectRepository_Update(t *testing.T) {
	t.Run("version mismatch", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)
		redirect := testRedirect(t)
		redirect.ID = 1
		redirect.Version = 1

		mock.ExpectQuery(`UPDATE redirects`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(redirect.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		updated, err := repo.Update(context.TODO(), redirect)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrVersionMismatch)
		assert.Nil(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redirect not found", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)
		redirect := testRedirect(t)
		redirect.ID = 42

		mock.ExpectQuery(`UPDATE redirects`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(redirect.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		updated, err := repo.Update(context.TODO(), redirect)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrRedirectNotFound)
		assert.Nil(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success bumps version", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)
		redirect := testRedirect(t)
		redirect.ID = 1
		redirect.Version = 1

		mock.ExpectQuery(`UPDATE redirects`).
			WillReturnRows(redirectRow(redirect, 1, 2))

		updated, err := repo.Update(context.TODO(), redirect)

		assert.NoError(t, err)
		assert.NotNil(t, updated)
		assert.Equal(t, int64(2), updated.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedirectRepository_RecordHit(t *testing.T) {
	hitAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	t.Run("redirect not found", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)

		mock.ExpectQuery(`UPDATE redirects`).
			WithArgs(hitAt, int64(42)).
			WillReturnError(sql.ErrNoRows)

		redirect, err := repo.RecordHit(context.TODO(), 42, hitAt)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrRedirectNotFound)
		assert.Nil(t, redirect)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)
		want := testRedirect(t)
		want.HitCounter = 1
		want.LastHit = &hitAt

		mock.ExpectQuery(`UPDATE redirects`).
			WithArgs(hitAt, int64(1)).
			WillReturnRows(redirectRow(want, 1, 1))

		redirect, err := repo.RecordHit(context.TODO(), 1, hitAt)

		assert.NoError(t, err)
		assert.NotNil(t, redirect)
		assert.Equal(t, int64(1), redirect.HitCounter)
		assert.NotNil(t, redirect.LastHit)
		assert.Equal(t, hitAt, *redirect.LastHit)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedirectRepository_Delete(t *testing.T) {
	t.Run("redirect not found", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)

		mock.ExpectExec(`DELETE FROM redirects`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.TODO(), 42)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrRedirectNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupRedirectRepository(t)

		mock.ExpectExec(`DELETE FROM redirects`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.TODO(), 1)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
