// Package recoverer provides a panic-recovery middleware that answers with
// the application's JSON error envelope instead of an empty 500.
package recoverer

import (
	"log/slog"
	"net/http"

	"github.com/redirectd/redirectd/pkg/render"
	"github.com/redirectd/redirectd/pkg/response"
)

func New(logger *slog.Logger) func(http.Handler) http.Handler {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error(
						"something went wrong, panic occuried",
						slog.Group(op, slog.Any("err", err)),
					)

					render.JSON(w, http.StatusInternalServerError, response.ServerErrorResponse)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
