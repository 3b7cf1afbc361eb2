package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redirectd/redirectd/internal/database"
	"github.com/redirectd/redirectd/internal/models"
)

type redirectRecord struct {
	ID                int64      `db:"id"`
	SourceURIPath     string     `db:"source_uri_path"`
	SourceURIPathHash string     `db:"source_uri_path_hash"`
	TargetURIPath     string     `db:"target_uri_path"`
	TargetURIPathHash string     `db:"target_uri_path_hash"`
	StatusCode        int        `db:"status_code"`
	Host              string     `db:"host"`
	HitCounter        int64      `db:"hit_counter"`
	LastHit           *time.Time `db:"last_hit"`
	Creator           string     `db:"creator"`
	Comment           string     `db:"comment"`
	Type              string     `db:"type"`
	StartDateTime     *time.Time `db:"start_date_time"`
	EndDateTime       *time.Time `db:"end_date_time"`
	CreatedAt         time.Time  `db:"created_at"`
	LastModifiedAt    time.Time  `db:"last_modified_at"`
	Version           int64      `db:"version"`
}

func (r *redirectRecord) ToRedirect() *models.Redirect {
	return &models.Redirect{
		ID:                r.ID,
		SourceURIPath:     r.SourceURIPath,
		SourceURIPathHash: r.SourceURIPathHash,
		TargetURIPath:     r.TargetURIPath,
		TargetURIPathHash: r.TargetURIPathHash,
		StatusCode:        r.StatusCode,
		Host:              r.Host,
		HitCounter:        r.HitCounter,
		LastHit:           r.LastHit,
		Creator:           r.Creator,
		Comment:           r.Comment,
		Type:              models.ParseRedirectType(r.Type),
		StartDateTime:     r.StartDateTime,
		EndDateTime:       r.EndDateTime,
		CreatedAt:         r.CreatedAt,
		LastModifiedAt:    r.LastModifiedAt,
		Version:           r.Version,
	}
}

// hostKey normalizes the host column value. Global rules are stored with an
// empty host so the composite unique index on (source_uri_path_hash, host)
// covers them too.
func hostKey(redirect *models.Redirect) string {
	host, _ := redirect.HostScope()
	return host
}

type RedirectRepository struct {
	db *sqlx.DB
}

func NewRedirectRepository(db *sqlx.DB) *RedirectRepository {
	return &RedirectRepository{
		db: db,
	}
}

// Create inserts a new redirect rule. The identity constraint on
// (source_uri_path_hash, host) is enforced by the database; a collision
// surfaces as database.ErrRedirectExists.
func (r *RedirectRepository) Create(ctx context.Context, redirect *models.Redirect) (*models.Redirect, error) {
	const op = "database.postgres.RedirectRepository.Create"
	const query = `INSERT INTO redirects(
			source_uri_path, source_uri_path_hash,
			target_uri_path, target_uri_path_hash,
			status_code, host, creator, comment, type,
			start_date_time, end_date_time,
			created_at, last_modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING *`

	rec := new(redirectRecord)

	err := r.db.GetContext(ctx, rec, query,
		redirect.SourceURIPath, redirect.SourceURIPathHash,
		redirect.TargetURIPath, redirect.TargetURIPathHash,
		redirect.StatusCode, hostKey(redirect),
		redirect.Creator, redirect.Comment, string(redirect.Type),
		redirect.StartDateTime, redirect.EndDateTime,
		redirect.CreatedAt, redirect.LastModifiedAt,
	)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrRedirectExists)
		}

		return nil, fmt.Errorf("%s: failed to create redirect record: %w", op, err)
	}

	return rec.ToRedirect(), nil
}

func (r *RedirectRepository) GetByID(ctx context.Context, id int64) (*models.Redirect, error) {
	const op = "database.postgres.RedirectRepository.GetByID"
	const query = `SELECT * FROM redirects WHERE id = $1`

	rec := new(redirectRecord)

	err := r.db.GetContext(ctx, rec, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrRedirectNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get redirect record: %w", op, err)
	}

	return rec.ToRedirect(), nil
}

// GetBySource looks a rule up by its identity: the source path hash plus the
// host it is scoped to. Global rules use an empty host.
func (r *RedirectRepository) GetBySource(ctx context.Context, sourceURIPathHash, host string) (*models.Redirect, error) {
	const op = "database.postgres.RedirectRepository.GetBySource"
	const query = `SELECT * FROM redirects WHERE source_uri_path_hash = $1 AND host = $2`

	rec := new(redirectRecord)

	err := r.db.GetContext(ctx, rec, query, sourceURIPathHash, host)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrRedirectNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get redirect record: %w", op, err)
	}

	return rec.ToRedirect(), nil
}

// ListByTarget returns the rules pointing at the given target path hash,
// answering "what redirects point here". An empty host matches all hosts.
func (r *RedirectRepository) ListByTarget(ctx context.Context, targetURIPathHash, host string) ([]*models.Redirect, error) {
	const op = "database.postgres.RedirectRepository.ListByTarget"

	var recs []redirectRecord
	var err error

	if host != "" {
		const query = `SELECT * FROM redirects WHERE target_uri_path_hash = $1 AND host = $2 ORDER BY id`
		err = r.db.SelectContext(ctx, &recs, query, targetURIPathHash, host)
	} else {
		const query = `SELECT * FROM redirects WHERE target_uri_path_hash = $1 ORDER BY id`
		err = r.db.SelectContext(ctx, &recs, query, targetURIPathHash)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list redirect records: %w", op, err)
	}

	redirects := make([]*models.Redirect, 0, len(recs))
	for i := range recs {
		redirects = append(redirects, recs[i].ToRedirect())
	}

	return redirects, nil
}

// Update persists a content change (target path and status code) using the
// redirect's version as the optimistic-concurrency token. A stale version
// surfaces as database.ErrVersionMismatch.
func (r *RedirectRepository) Update(ctx context.Context, redirect *models.Redirect) (*models.Redirect, error) {
	const op = "database.postgres.RedirectRepository.Update"
	const query = `UPDATE redirects
		SET target_uri_path = $1,
			target_uri_path_hash = $2,
			status_code = $3,
			last_modified_at = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING *`

	rec := new(redirectRecord)

	err := r.db.GetContext(ctx, rec, query,
		redirect.TargetURIPath, redirect.TargetURIPathHash,
		redirect.StatusCode, redirect.LastModifiedAt,
		redirect.ID, redirect.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.resolveMissingRow(ctx, op, redirect.ID)
		}

		return nil, fmt.Errorf("%s: failed to update redirect record: %w", op, err)
	}

	return rec.ToRedirect(), nil
}

// resolveMissingRow tells a vanished row apart from a stale version after an
// optimistic update matched nothing.
func (r *RedirectRepository) resolveMissingRow(ctx context.Context, op string, id int64) error {
	var exists bool

	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM redirects WHERE id = $1)`, id)
	if err != nil {
		return fmt.Errorf("%s: failed to check redirect record existence: %w", op, err)
	}

	if exists {
		return fmt.Errorf("%s: %w", op, database.ErrVersionMismatch)
	}

	return fmt.Errorf("%s: %w", op, database.ErrRedirectNotFound)
}

// RecordHit atomically bumps the hit counter and stamps the last hit. Hit
// tracking is telemetry: it skips the version check and leaves both the
// version and last_modified_at alone.
func (r *RedirectRepository) RecordHit(ctx context.Context, id int64, hitAt time.Time) (*models.Redirect, error) {
	const op = "database.postgres.RedirectRepository.RecordHit"
	const query = `UPDATE redirects
		SET hit_counter = hit_counter + 1,
			last_hit = $1
		WHERE id = $2
		RETURNING *`

	rec := new(redirectRecord)

	err := r.db.GetContext(ctx, rec, query, hitAt, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrRedirectNotFound)
		}

		return nil, fmt.Errorf("%s: failed to record redirect hit: %w", op, err)
	}

	return rec.ToRedirect(), nil
}

func (r *RedirectRepository) Delete(ctx context.Context, id int64) error {
	const op = "database.postgres.RedirectRepository.Delete"
	const query = `DELETE FROM redirects WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: failed to delete redirect record: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, database.ErrRedirectNotFound)
	}

	return nil
}
