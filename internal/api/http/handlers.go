package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/redirectd/redirectd/internal/database"
	"github.com/redirectd/redirectd/internal/models"
	"github.com/redirectd/redirectd/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

type createRedirectRequest struct {
	SourceURIPath string     `json:"source_uri_path" validate:"required"`
	TargetURIPath string     `json:"target_uri_path" validate:"required"`
	StatusCode    int        `json:"status_code" validate:"required,gte=100,lte=599"`
	Host          string     `json:"host,omitempty"`
	Creator       string     `json:"creator,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	Type          string     `json:"type,omitempty"`
	StartDateTime *time.Time `json:"start_date_time,omitempty"`
	EndDateTime   *time.Time `json:"end_date_time,omitempty"`
}

type updateRedirectRequest struct {
	TargetURIPath string `json:"target_uri_path" validate:"required"`
	StatusCode    int    `json:"status_code" validate:"required,gte=100,lte=599"`
	Version       int64  `json:"version" validate:"required,gte=1"`
}

type redirectResponse struct {
	ID                int64      `json:"id"`
	SourceURIPath     string     `json:"source_uri_path"`
	SourceURIPathHash string     `json:"source_uri_path_hash"`
	TargetURIPath     string     `json:"target_uri_path"`
	TargetURIPathHash string     `json:"target_uri_path_hash"`
	StatusCode        int        `json:"status_code"`
	Host              string     `json:"host,omitempty"`
	HitCounter        int64      `json:"hit_counter"`
	LastHit           *time.Time `json:"last_hit,omitempty"`
	Creator           string     `json:"creator,omitempty"`
	Comment           string     `json:"comment,omitempty"`
	Type              string     `json:"type"`
	StartDateTime     *time.Time `json:"start_date_time,omitempty"`
	EndDateTime       *time.Time `json:"end_date_time,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastModifiedAt    time.Time  `json:"last_modified_at"`
	Version           int64      `json:"version"`
}

func toRedirectResponse(redirect *models.Redirect) redirectResponse {
	host, _ := redirect.HostScope()

	return redirectResponse{
		ID:                redirect.ID,
		SourceURIPath:     redirect.SourceURIPath,
		SourceURIPathHash: redirect.SourceURIPathHash,
		TargetURIPath:     redirect.TargetURIPath,
		TargetURIPathHash: redirect.TargetURIPathHash,
		StatusCode:        redirect.StatusCode,
		Host:              host,
		HitCounter:        redirect.HitCounter,
		LastHit:           redirect.LastHit,
		Creator:           redirect.Creator,
		Comment:           redirect.Comment,
		Type:              string(redirect.Type),
		StartDateTime:     redirect.StartDateTime,
		EndDateTime:       redirect.EndDateTime,
		CreatedAt:         redirect.CreatedAt,
		LastModifiedAt:    redirect.LastModifiedAt,
		Version:           redirect.Version,
	}
}

func redirectIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "redirectID"), 10, 64)
}

func handleCreateRedirect(svc RedirectService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleCreateRedirect"
	const successMsg = "The redirect was created successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req createRedirectRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		redirect, err := svc.CreateRedirect(r.Context(), models.RedirectParams{
			SourceURIPath: req.SourceURIPath,
			TargetURIPath: req.TargetURIPath,
			StatusCode:    req.StatusCode,
			Host:          req.Host,
			Creator:       req.Creator,
			Comment:       req.Comment,
			Type:          req.Type,
			StartDateTime: req.StartDateTime,
			EndDateTime:   req.EndDateTime,
		})
		if err != nil {
			if errors.Is(err, database.ErrRedirectExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.RedirectExistsResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toRedirectResponse(redirect)))
	}
}

func handleGetRedirect(svc RedirectService) http.HandlerFunc {
	const op = "api.http.handleGetRedirect"
	const successMsg = "The redirect was retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := redirectIDParam(r)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.ResourceNotFoundResponse)
			return
		}

		redirect, err := svc.GetRedirect(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrRedirectNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toRedirectResponse(redirect)))
	}
}

func handleUpdateRedirect(svc RedirectService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleUpdateRedirect"
	const successMsg = "The redirect was updated successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRedirectRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		id, err := redirectIDParam(r)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.ResourceNotFoundResponse)
			return
		}

		redirect, err := svc.UpdateRedirectTarget(r.Context(), id, req.TargetURIPath, req.StatusCode, req.Version)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrRedirectNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, database.ErrVersionMismatch):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.VersionMismatchResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toRedirectResponse(redirect)))
	}
}

func handleDeleteRedirect(svc RedirectService) http.HandlerFunc {
	const op = "api.http.handleDeleteRedirect"
	const successMsg = "The redirect was deleted successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := redirectIDParam(r)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.ResourceNotFoundResponse)
			return
		}

		if err := svc.DeleteRedirect(r.Context(), id); err != nil {
			if errors.Is(err, database.ErrRedirectNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

func handleListRedirectsByTarget(svc RedirectService) http.HandlerFunc {
	const op = "api.http.handleListRedirectsByTarget"
	const successMsg = "The redirects were retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		targetURIPath := r.URL.Query().Get("target")
		if targetURIPath == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		redirects, err := svc.ListRedirectsByTarget(r.Context(), targetURIPath, r.URL.Query().Get("host"))
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]redirectResponse, 0, len(redirects))
		for _, redirect := range redirects {
			data = append(data, toRedirectResponse(redirect))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}
