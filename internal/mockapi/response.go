package mockapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"admin-console/internal/envelope"
	"admin-console/pkg/apierror"
)

var responsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "admin_console_mockapi_responses_total",
	Help: "Envelopes written by the development backend, by envelope code.",
}, []string{"code"})

// The backend answers every business outcome with HTTP 200 and lets the
// envelope code carry the result.
func writeSuccess(w http.ResponseWriter, message string, data any) {
	responsesTotal.WithLabelValues("0").Inc()
	envelope.Write(w, http.StatusOK, 0, message, data)
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := apierror.CodeInternal
	message := "internal server error"

	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		code = apiErr.Code
		message = apiErr.Message
	} else {
		logger.Error("request failed", "error", err)
	}

	responsesTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	envelope.Write(w, http.StatusOK, code, message, nil)
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errParam("invalid JSON body")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errParam("invalid id")
	}
	return id, nil
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// pageParams reads page and page_size (or size). Missing or malformed values
// fall back to the first page of the default size.
func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	rawSize := q.Get("page_size")
	if rawSize == "" {
		rawSize = q.Get("size")
	}
	size, err := strconv.Atoi(rawSize)
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	return page, min(size, maxPageSize)
}

type listResponse[T any] struct {
	List  []T   `json:"list"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}
