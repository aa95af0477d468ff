package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// RequestIDHeader is the response header that carries the request ID.
const RequestIDHeader = "X-Request-ID"

// requestInfo is filled in while the request travels through the server.
type requestInfo struct {
	id    string
	route string
}

const requestInfoKey ctxKey = "gatekeeperRequestInfo"

func requestInfoFromContext(ctx context.Context) (*requestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey).(*requestInfo)
	return info, ok
}

func requestID(ctx context.Context) string {
	info, ok := requestInfoFromContext(ctx)
	if !ok {
		return ""
	}
	return info.id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// instrument is a middleware that tags every request with an ID and
// counts it by method, route and status.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &requestInfo{
			id:    uuid.NewString(),
			route: "unmatched",
		}

		w.Header().Set(RequestIDHeader, info.id)

		rec := &statusRecorder{ResponseWriter: w}
		ctx := context.WithValue(r.Context(), requestInfoKey, info)
		next.ServeHTTP(rec, r.WithContext(ctx))

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		s.deps.Metrics.RequestsTotal.WithLabelValues(r.Method, info.route, strconv.Itoa(status)).Inc()
	})
}
