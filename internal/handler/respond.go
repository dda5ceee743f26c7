package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavola-pos/backoffice/internal/logging"
	"github.com/tavola-pos/backoffice/internal/middleware"
	"github.com/tavola-pos/backoffice/internal/service"
	"github.com/tavola-pos/backoffice/internal/validate"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Errorf("failed to encode JSON response: %v", err)
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: msg, Kind: string(service.KindValidation)})
}

// decodeBody decodes the JSON body into dst and runs its validate tags.
// It writes the 400 itself and reports whether the handler may continue.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, r, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var ve validate.Errors
		if errors.As(err, &ve) {
			writeJSON(w, r, http.StatusBadRequest, errorResponse{
				Error:   "validation failed",
				Kind:    string(service.KindValidation),
				Details: ve,
			})
			return false
		}
		badRequest(w, r, err.Error())
		return false
	}
	return true
}

// writeServiceError maps a service error onto its HTTP status. Internal
// errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, funcName string, err error) {
	kind := service.Kind(err)
	status := statusForKind(kind)

	if status == http.StatusInternalServerError {
		logging.LogError(logging.FromContext(r.Context()), "handler", funcName, r.Method+" "+r.URL.Path, nil, err)
		writeJSON(w, r, status, errorResponse{Error: "internal server error", Kind: string(kind)})
		return
	}

	resp := errorResponse{Error: err.Error(), Kind: string(kind)}
	var se *service.ShortageError
	if errors.As(err, &se) {
		resp.Details = se.Shortages
	}
	writeJSON(w, r, status, resp)
}

// writeStoreError handles errors from direct store calls: no rows is a 404
// for what, a unique violation a 409, a dangling reference a 400, anything
// else a logged 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, funcName, what string, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: what + " not found", Kind: string(service.KindNotFound)})
		return
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			writeJSON(w, r, http.StatusConflict, errorResponse{Error: what + " already exists", Kind: string(service.KindDuplicateID)})
			return
		case "23503":
			writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "referenced record does not exist", Kind: string(service.KindValidation)})
			return
		}
	}
	logging.LogError(logging.FromContext(r.Context()), "handler", funcName, r.Method+" "+r.URL.Path, nil, err)
	writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error", Kind: string(service.KindInternal)})
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindInsufficientStock,
		service.KindAlreadyBilled,
		service.KindInvalidStateTransition,
		service.KindDuplicateID,
		service.KindConcurrencyConflict,
		service.KindTableUnavailable:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// pagination reads limit/offset query params. limit defaults to 20 and is
// capped at 100.
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// listResponse wraps a page of results with its pagination metadata.
type listResponse[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// actor names the admin behind the request for audit columns.
func actor(r *http.Request) string {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		return claims.Email
	}
	return "system"
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
