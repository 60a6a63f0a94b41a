// Package audit records administrator actions as structured log entries.
package audit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/comilla/site-backend/internal/api/middleware"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is one administrator action.
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	AdminUser    string            `json:"admin_user"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	IPAddress    string            `json:"ip_address"`
	Status       string            `json:"status"`
	HTTPStatus   int               `json:"http_status,omitempty"`
	RequestID    string            `json:"request_id,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

type Logger struct {
	logger         zerolog.Logger
	trustedProxies []string
	now            func() time.Time
}

// NewLogger writes entries to logger under the "audit" key. trustedProxies
// controls which peers may supply X-Forwarded-For.
func NewLogger(logger zerolog.Logger, trustedProxies []string) *Logger {
	return &Logger{
		logger:         logger.With().Str("component", "audit").Logger(),
		trustedProxies: trustedProxies,
		now:            time.Now,
	}
}

func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	event := l.logger.Info()
	if entry.Status == StatusFailure {
		event = l.logger.Warn()
	}
	event.Interface("audit", entry).Msg(entry.Action)
}

// Middleware audits every request to the wrapped admin route. It must run
// inside the session middleware so the acting user is known.
func (l *Logger) Middleware(action, resourceType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			entry := Entry{
				Action:       action,
				AdminUser:    "unknown",
				ResourceType: resourceType,
				ResourceID:   r.PathValue("id"),
				IPAddress:    middleware.ClientIP(r, l.trustedProxies),
				Status:       StatusSuccess,
				HTTPStatus:   status,
				RequestID:    middleware.GetRequestID(r.Context()),
			}
			if claims := middleware.SessionClaims(r); claims != nil {
				entry.AdminUser = claims.Subject
			}
			if status >= http.StatusBadRequest {
				entry.Status = StatusFailure
			}
			l.Log(entry)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
