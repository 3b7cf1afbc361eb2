package http

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/redirectd/redirectd/internal/database"
	"github.com/redirectd/redirectd/internal/service"
	"github.com/redirectd/redirectd/pkg/response"
)

// requestHost strips an optional port from the Host header.
func requestHost(r *http.Request) string {
	if strings.Contains(r.Host, ":") {
		if host, _, err := net.SplitHostPort(r.Host); err == nil {
			return host
		}
	}
	return r.Host
}

// handleRedirect is the redirect endpoint: it matches the request path and
// host against the stored rules and answers with the rule's status code and
// target. A miss, or a rule outside its validity window, falls through to 404.
func handleRedirect(svc RedirectService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		redirect, err := svc.ResolveRedirect(r.Context(), requestHost(r), r.URL.Path)
		if err != nil {
			if errors.Is(err, database.ErrRedirectNotFound) || errors.Is(err, service.ErrRedirectInactive) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		http.Redirect(w, r, "/"+redirect.TargetURIPath, redirect.StatusCode)
	}
}
