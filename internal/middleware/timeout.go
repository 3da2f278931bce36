package middleware

import (
	"net/http"
	"strconv"
	"time"

	"admin-console/pkg/apierror"
)

func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message := `{"code":` + strconv.Itoa(apierror.CodeInternal) + `,"msg":"request timed out","data":null}`

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
