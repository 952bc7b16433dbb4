package formdata

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/restform/pkg/logger"
)

// RequestIDHeader is read by Middleware to tag parser logs.
const RequestIDHeader = "X-Request-ID"

// Incoming ids are accepted when short and made of safe characters.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// ErrorHandler writes the response for a request whose body failed to parse.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware parses request bodies with p and stores the Session in the
// request context, see FromContext. Requests p does not handle pass
// through without a Session. Temporary files are released once next
// returns; use Session.Registry().Keep to hold on to a file.
//
// The request context gets a request id from RequestIDHeader, or a fresh
// one when the header is missing or malformed, unless it already carries
// one. The id is echoed in the response header.
//
// A nil onError responds with 400, or 413 when the field limit is hit.
func Middleware(p *Parser, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = defaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			if _, ok := RequestID(r.Context()); !ok {
				id := r.Header.Get(RequestIDHeader)
				if !validRequestID.MatchString(id) {
					id = uuid.NewString()
				}
				w.Header().Set(RequestIDHeader, id)
				r = r.WithContext(WithRequestID(r.Context(), id))
			}

			sess, err := p.ParseRequest(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			if !sess.Multipart() {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithSession(r.Context(), sess)
			defer func() {
				sess.Release(ctx)
				p.logger.DebugContext(ctx, "multipart request served",
					logger.Duration(time.Since(start)),
					slog.Int("unreleased", sess.registry.Len()),
				)
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, ErrTooManyFields) {
		status = http.StatusRequestEntityTooLarge
	}
	http.Error(w, http.StatusText(status), status)
}
