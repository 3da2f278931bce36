package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"admin-console/internal/envelope"
	"admin-console/pkg/apierror"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				slog.Error("panic recovered", "error", fmt.Sprintf("%v", recovered), "stack", string(debug.Stack()))
				envelope.Write(w, http.StatusInternalServerError, apierror.CodeInternal, "unexpected server error", nil)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
