package formdata

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/restform/pkg/fieldtree"
	"github.com/dmitrymomot/restform/pkg/logger"
	"github.com/dmitrymomot/restform/pkg/tempstore"
)

const (
	// DefaultBufferSize is the read buffer size. Lines longer than the
	// buffer are processed in fragments.
	DefaultBufferSize = 64 << 10

	minBufferSize = 4 << 10
)

// Parser turns multipart/form-data bodies of non-POST requests into form
// and file trees. A Parser is safe for concurrent use; every Parse call
// gets its own Session.
type Parser struct {
	store       *tempstore.Store
	skipMethods []string
	maxFields   int
	bufferSize  int
	logger      *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithSkipMethods replaces the set of methods whose bodies are left alone
// (default GET and POST, which the hosting server parses natively).
func WithSkipMethods(methods ...string) Option {
	return func(p *Parser) {
		p.skipMethods = append([]string(nil), methods...)
	}
}

// WithMaxFields limits the number of materialized fields per body.
// Zero disables the limit.
func WithMaxFields(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.maxFields = n
		}
	}
}

// WithBufferSize sets the read buffer size in bytes. Zero or a negative
// value keeps the default.
func WithBufferSize(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.bufferSize = max(n, minBufferSize)
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

func newParser(opts []Option) *Parser {
	p := &Parser{
		skipMethods: []string{http.MethodGet, http.MethodPost},
		bufferSize:  DefaultBufferSize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.Decorate(p.logger, requestIDAttr).With(logger.Component("formdata"))
	return p
}

// New creates a Parser storing uploaded files through store.
func New(store *tempstore.Store, opts ...Option) (*Parser, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	p := newParser(opts)
	p.store = store
	return p, nil
}

// Parse reads body as described by contentType and method.
//
// Bodies that are not multipart/form-data, or that belong to a skipped
// method, are not read and yield an empty Session. Malformed parts are
// dropped one by one; file-level problems are reported per file through
// the error attribute. Parse fails only when the body cannot be read or
// the field limit is hit. On failure every temporary file created so far
// is removed and the Session is nil.
//
// The caller owns the returned Session and should call Release once the
// uploaded files are no longer needed.
func (p *Parser) Parse(ctx context.Context, contentType, method string, body io.Reader) (*Session, error) {
	boundary, ok := Boundary(contentType, method, p.skipMethods...)
	sess := newSession(boundary, p.store.NewRegistry())
	if !ok || body == nil {
		return sess, nil
	}

	sc := newScanner(bufio.NewReaderSize(body, p.bufferSize), boundary, p.store.MaxSize(),
		func(ctx context.Context, pt *part, value []byte, size int64, truncated bool) error {
			return p.assign(ctx, sess, pt, value, size, truncated)
		})
	sc.discard = func(reason string) {
		p.logger.DebugContext(ctx, "multipart part discarded", slog.String("reason", reason))
	}

	complete, err := sc.run(ctx)
	if err != nil {
		sess.Release(ctx)
		p.logger.DebugContext(ctx, "multipart body rejected", logger.Error(err))
		return nil, err
	}
	sess.complete = complete

	p.logger.DebugContext(ctx, "multipart body parsed",
		logger.Group("body",
			slog.String("method", method),
			slog.Int("fields", sess.fields),
			slog.Int("files", sess.registry.Len()),
			slog.Bool("complete", complete),
		),
	)
	return sess, nil
}

// ParseRequest parses the body of r using its method, Content-Type header
// and context.
func (p *Parser) ParseRequest(r *http.Request) (*Session, error) {
	return p.Parse(r.Context(), r.Header.Get("Content-Type"), r.Method, r.Body)
}

func (p *Parser) assign(ctx context.Context, sess *Session, pt *part, value []byte, size int64, truncated bool) error {
	name := fieldtree.FormatPath(pt.path)

	if pt.kind == partBinary && !pt.hasMime {
		p.logger.DebugContext(ctx, "multipart part discarded",
			slog.String("reason", "file part without content type"),
			logger.Field(name),
			logger.Filename(pt.filename),
		)
		return nil
	}

	if p.maxFields > 0 && sess.fields >= p.maxFields {
		return fmt.Errorf("%w: limit is %d", ErrTooManyFields, p.maxFields)
	}

	if pt.kind == partText {
		err := fieldtree.Assign(sess.form, pt.path, string(value))
		if errors.Is(err, fieldtree.ErrIndexOverflow) {
			p.discardOverflow(ctx, name)
			return nil
		}
		if err != nil {
			return err
		}
		sess.fields++
		return nil
	}

	out := sess.registry.Save(ctx, value, size)
	if out.Code != tempstore.CodeOK {
		p.logger.DebugContext(ctx, "file upload failed",
			logger.Field(name),
			logger.Filename(pt.filename),
			logger.UploadCode(int(out.Code)),
			slog.Int64("size", size),
			slog.Bool("truncated", truncated),
			logger.Error(out.Err),
		)
	}

	err := sess.files.Assign(pt.path, [fieldtree.NumAttrs]string{
		fieldtree.AttrName:    pt.filename,
		fieldtree.AttrType:    pt.mime,
		fieldtree.AttrTmpName: out.Path,
		fieldtree.AttrError:   strconv.Itoa(int(out.Code)),
		fieldtree.AttrSize:    strconv.FormatInt(size, 10),
	})
	if errors.Is(err, fieldtree.ErrIndexOverflow) {
		p.discardOverflow(ctx, name, logger.Filename(pt.filename))
		if out.Code == tempstore.CodeOK {
			if err := sess.registry.Remove(ctx, out.Path); err != nil {
				p.logger.DebugContext(ctx, "failed to remove temporary file", logger.Error(err))
			}
		}
		return nil
	}
	if err != nil {
		return err
	}
	sess.fields++
	return nil
}

func (p *Parser) discardOverflow(ctx context.Context, name string, attrs ...slog.Attr) {
	p.logger.LogAttrs(ctx, slog.LevelDebug, "multipart part discarded",
		append([]slog.Attr{
			slog.String("reason", "no free index to append to"),
			logger.Field(name),
		}, attrs...)...,
	)
}
