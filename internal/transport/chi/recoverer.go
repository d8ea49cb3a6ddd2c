package chi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/logger"
)

// Recoverer turns a handler panic into a 500 carrying the usual error body.
// http.ErrAbortHandler is re-raised so the server still aborts the response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler { //nolint:errorlint // recover() returns the value as-is
				panic(rvr)
			}
			logger.FromContext(r.Context()).Error("panic recovered",
				zap.Any("panic", rvr),
				zap.Stack("stacktrace"),
			)
			writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal error")
		}()
		next.ServeHTTP(w, r)
	})
}
