package middleware

import (
	"net/http"

	"github.com/doodlesbykumbi/scanstore/pkg/audit"
	"github.com/doodlesbykumbi/scanstore/pkg/identity"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Audit records state-changing requests in the audit log. It must run after
// the JWT middleware so the caller identity is known.
func Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := audit.RequestEvent{
			Method: r.Method,
			Path:   r.URL.Path,
			Status: rec.status,
		}
		if id, ok := identity.Get(r.Context()); ok {
			event.Subject = id.Subject
			if id.RemoteIP != nil {
				event.ClientIP = id.RemoteIP.String()
			}
		}
		audit.Log(event)
	})
}
