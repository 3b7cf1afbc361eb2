package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redirectd/redirectd/internal/database"
	"github.com/redirectd/redirectd/internal/models"
)

// ErrRedirectInactive is returned when a rule matches a request but lies
// outside its validity window. The matcher treats it like a lookup miss.
var ErrRedirectInactive = errors.New("redirect not active")

// RedirectRepository defines the interface for working with redirect rules at the business logic layer.
type RedirectRepository interface {
	// Create inserts a new redirect rule into the repository.
	// Returns the created rule with its store-assigned id and version, or an error if the operation fails.
	Create(ctx context.Context, redirect *models.Redirect) (*models.Redirect, error)

	// GetByID retrieves a redirect rule by its identifier.
	GetByID(ctx context.Context, id int64) (*models.Redirect, error)

	// GetBySource retrieves a redirect rule by its identity: source path hash plus host.
	GetBySource(ctx context.Context, sourceURIPathHash, host string) (*models.Redirect, error)

	// ListByTarget retrieves the rules whose target path hash matches, optionally scoped to a host.
	ListByTarget(ctx context.Context, targetURIPathHash, host string) ([]*models.Redirect, error)

	// Update persists a content change, using the rule's version as the concurrency token.
	Update(ctx context.Context, redirect *models.Redirect) (*models.Redirect, error)

	// RecordHit bumps the rule's hit counter and last-hit timestamp.
	RecordHit(ctx context.Context, id int64, hitAt time.Time) (*models.Redirect, error)

	// Delete removes a redirect rule by its identifier.
	Delete(ctx context.Context, id int64) error
}

// RedirectService provides methods to manage and resolve redirect rules.
// The service uses a RedirectRepository interface to interact with the
// underlying database, and owns the clock all mutations are stamped with.
type RedirectService struct {
	repo RedirectRepository
	now  func() time.Time
}

// Option configures a RedirectService.
type Option func(*RedirectService)

// WithClock replaces the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *RedirectService) {
		s.now = now
	}
}

// NewRedirectService creates a new instance of RedirectService with the provided repository.
func NewRedirectService(repo RedirectRepository, opts ...Option) *RedirectService {
	s := &RedirectService{
		repo: repo,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateRedirect builds a redirect rule from params and stores it.
// The status code is validated eagerly; an identity collision on
// (source path hash, host) surfaces as database.ErrRedirectExists.
func (s *RedirectService) CreateRedirect(ctx context.Context, params models.RedirectParams) (*models.Redirect, error) {
	const op = "service.RedirectService.CreateRedirect"

	redirect, err := models.NewRedirect(params, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build redirect: %w", op, err)
	}

	created, err := s.repo.Create(ctx, redirect)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create redirect: %w", op, err)
	}

	return created, nil
}

// GetRedirect retrieves a redirect rule by its identifier.
func (s *RedirectService) GetRedirect(ctx context.Context, id int64) (*models.Redirect, error) {
	const op = "service.RedirectService.GetRedirect"

	redirect, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get redirect: %w", op, err)
	}

	return redirect, nil
}

// UpdateRedirectTarget changes a rule's target path and status code, based
// on the version the caller last read. A concurrent change in between
// surfaces as database.ErrVersionMismatch.
func (s *RedirectService) UpdateRedirectTarget(ctx context.Context, id int64, targetURIPath string, statusCode int, version int64) (*models.Redirect, error) {
	const op = "service.RedirectService.UpdateRedirectTarget"

	redirect, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get redirect: %w", op, err)
	}

	if err := redirect.UpdateTarget(targetURIPath, statusCode, s.now()); err != nil {
		return nil, fmt.Errorf("%s: failed to update target: %w", op, err)
	}
	redirect.Version = version

	updated, err := s.repo.Update(ctx, redirect)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to update redirect: %w", op, err)
	}

	return updated, nil
}

// DeleteRedirect removes the redirect rule with the given identifier.
func (s *RedirectService) DeleteRedirect(ctx context.Context, id int64) error {
	const op = "service.RedirectService.DeleteRedirect"

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("%s: failed to delete redirect: %w", op, err)
	}

	return nil
}

// ListRedirectsByTarget answers "what redirects point here" for a target
// path, optionally scoped to a host.
func (s *RedirectService) ListRedirectsByTarget(ctx context.Context, targetURIPath, host string) ([]*models.Redirect, error) {
	const op = "service.RedirectService.ListRedirectsByTarget"

	targetHash := models.HashURIPath(models.NormalizeURIPath(targetURIPath))

	redirects, err := s.repo.ListByTarget(ctx, targetHash, strings.TrimSpace(host))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list redirects: %w", op, err)
	}

	return redirects, nil
}

// ResolveRedirect matches a request path and host against the stored rules.
// A host-scoped rule wins over a global one; a rule outside its validity
// window does not match. On a match the hit is recorded and the rule is
// returned with its updated telemetry.
func (s *RedirectService) ResolveRedirect(ctx context.Context, host, uriPath string) (*models.Redirect, error) {
	const op = "service.RedirectService.ResolveRedirect"

	sourceHash := models.HashURIPath(models.NormalizeURIPath(uriPath))
	hostScope := strings.TrimSpace(host)

	redirect, err := s.repo.GetBySource(ctx, sourceHash, hostScope)
	if err != nil && hostScope != "" && errors.Is(err, database.ErrRedirectNotFound) {
		redirect, err = s.repo.GetBySource(ctx, sourceHash, "")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve redirect: %w", op, err)
	}

	now := s.now()
	if !redirect.ActiveAt(now) {
		return nil, fmt.Errorf("%s: %w", op, ErrRedirectInactive)
	}

	hit, err := s.repo.RecordHit(ctx, redirect.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to record hit: %w", op, err)
	}

	return hit, nil
}
