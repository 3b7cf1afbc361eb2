// Package models defines the domain entities of the application.
// Its central type is Redirect, a persisted rule mapping a source URI path
// (optionally scoped to a host) to a target URI path and HTTP status code.
package models

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidStatusCode is returned when a redirect is given an HTTP status
// code outside the [100, 599] range.
var ErrInvalidStatusCode = errors.New("status code out of range [100, 599]")

// RedirectType classifies how a redirect rule came into existence.
type RedirectType string

const (
	// RedirectTypeGenerated marks rules created automatically, e.g. when a
	// page is moved or renamed.
	RedirectTypeGenerated RedirectType = "generated"
	// RedirectTypeManual marks rules entered by an editor.
	RedirectTypeManual RedirectType = "manual"
)

// ParseRedirectType coerces raw input to a valid RedirectType. Unknown or
// empty input yields RedirectTypeGenerated rather than an error.
func ParseRedirectType(raw string) RedirectType {
	if RedirectType(raw) == RedirectTypeManual {
		return RedirectTypeManual
	}
	return RedirectTypeGenerated
}

// Redirect represents a redirect rule.
//
// The pair (SourceURIPathHash, Host) identifies a rule uniquely within a
// store; the target hash is index-only. Both hashes are recomputed from
// their path whenever the path changes, so they can never diverge from it.
type Redirect struct {
	ID                int64        // ID is the unique identifier of the rule in the database.
	SourceURIPath     string       // SourceURIPath is the normalized relative path that triggers the redirect.
	SourceURIPathHash string       // SourceURIPathHash is the fixed-width digest of SourceURIPath, identity-bearing together with Host.
	TargetURIPath     string       // TargetURIPath is the normalized relative path to redirect to.
	TargetURIPathHash string       // TargetURIPathHash is the fixed-width digest of TargetURIPath, index-only.
	StatusCode        int          // StatusCode is the HTTP status sent with the redirect response.
	Host              string       // Host is stored as given; use HostScope to read it.
	HitCounter        int64        // HitCounter is the number of times the rule has matched.
	LastHit           *time.Time   // LastHit is the time of the most recent match, nil until the first one.
	Creator           string       // Creator is free-form audit metadata.
	Comment           string       // Comment is free-form audit metadata.
	Type              RedirectType // Type tells whether the rule was generated or entered manually.
	StartDateTime     *time.Time   // StartDateTime is the optional lower bound of the validity window.
	EndDateTime       *time.Time   // EndDateTime is the optional upper bound of the validity window.
	CreatedAt         time.Time    // CreatedAt is set once at construction.
	LastModifiedAt    time.Time    // LastModifiedAt tracks content changes only, never hit tracking.
	Version           int64        // Version is the optimistic-concurrency token, owned by the store.
}

// RedirectParams carries the constructor inputs for NewRedirect. Host,
// Creator, Comment, Type and the window bounds are optional.
type RedirectParams struct {
	SourceURIPath string
	TargetURIPath string
	StatusCode    int
	Host          string
	Creator       string
	Comment       string
	Type          string
	StartDateTime *time.Time
	EndDateTime   *time.Time
}

// NewRedirect builds a redirect rule from params. It normalizes both paths,
// derives their hashes, coerces the type and stamps both timestamps to now.
// The status code is validated eagerly; out-of-range values are rejected.
func NewRedirect(params RedirectParams, now time.Time) (*Redirect, error) {
	const op = "models.NewRedirect"

	if err := validateStatusCode(params.StatusCode); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sourcePath := NormalizeURIPath(params.SourceURIPath)
	targetPath := NormalizeURIPath(params.TargetURIPath)

	return &Redirect{
		SourceURIPath:     sourcePath,
		SourceURIPathHash: HashURIPath(sourcePath),
		TargetURIPath:     targetPath,
		TargetURIPathHash: HashURIPath(targetPath),
		StatusCode:        params.StatusCode,
		Host:              params.Host,
		Creator:           params.Creator,
		Comment:           params.Comment,
		Type:              ParseRedirectType(params.Type),
		StartDateTime:     params.StartDateTime,
		EndDateTime:       params.EndDateTime,
		CreatedAt:         now,
		LastModifiedAt:    now,
	}, nil
}

// SetTargetURIPath replaces the target path, recomputes its hash and stamps
// LastModifiedAt.
func (r *Redirect) SetTargetURIPath(targetURIPath string, now time.Time) {
	r.TargetURIPath = NormalizeURIPath(targetURIPath)
	r.TargetURIPathHash = HashURIPath(r.TargetURIPath)
	r.LastModifiedAt = now
}

// SetStatusCode replaces the status code and stamps LastModifiedAt.
func (r *Redirect) SetStatusCode(statusCode int, now time.Time) error {
	const op = "models.Redirect.SetStatusCode"

	if err := validateStatusCode(statusCode); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.StatusCode = statusCode
	r.LastModifiedAt = now
	return nil
}

// UpdateTarget replaces the target path and status code in one content
// change.
func (r *Redirect) UpdateTarget(targetURIPath string, statusCode int, now time.Time) error {
	const op = "models.Redirect.UpdateTarget"

	if err := r.SetStatusCode(statusCode, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.SetTargetURIPath(targetURIPath, now)
	return nil
}

// RecordHit increments the hit counter and stamps LastHit. Hit tracking is
// telemetry, not a content change: LastModifiedAt stays untouched.
func (r *Redirect) RecordHit(now time.Time) {
	r.HitCounter++
	r.LastHit = &now
}

// HostScope returns the host the rule is scoped to. A stored host that is
// empty or whitespace-only reads as absent (a global rule), even though the
// raw value is kept as given.
func (r *Redirect) HostScope() (string, bool) {
	host := strings.TrimSpace(r.Host)
	return host, host != ""
}

// ActiveAt reports whether t falls within the rule's validity window. Each
// bound is optional; an absent bound leaves that side unbounded.
func (r *Redirect) ActiveAt(t time.Time) bool {
	if r.StartDateTime != nil && t.Before(*r.StartDateTime) {
		return false
	}
	if r.EndDateTime != nil && t.After(*r.EndDateTime) {
		return false
	}
	return true
}

// NormalizeURIPath strips leading and trailing slashes, turning "/foo/bar/"
// into "foo/bar". The result may be empty.
func NormalizeURIPath(uriPath string) string {
	return strings.Trim(uriPath, "/")
}

// HashURIPath returns the 32-character hex digest used for fixed-width
// lookup indexing. MD5 is deliberate: this is not a security boundary, any
// collision-resistant fixed-length digest serves, and the 32-character width
// is part of the store's column contract.
func HashURIPath(uriPath string) string {
	sum := md5.Sum([]byte(uriPath))
	return hex.EncodeToString(sum[:])
}

func validateStatusCode(statusCode int) error {
	if statusCode < 100 || statusCode > 599 {
		return fmt.Errorf("%w: got %d", ErrInvalidStatusCode, statusCode)
	}
	return nil
}
