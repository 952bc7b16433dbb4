package formdata

import (
	"context"
	"strconv"

	"github.com/dmitrymomot/restform/pkg/fieldtree"
	"github.com/dmitrymomot/restform/pkg/tempstore"
)

// Session is the result of parsing one request body: the form tree, the
// file forest and the temporary files backing it.
// A Session is not safe for concurrent use.
type Session struct {
	boundary string
	complete bool
	fields   int
	form     *fieldtree.Value
	files    *fieldtree.Forest
	registry *tempstore.Registry
}

func newSession(boundary string, registry *tempstore.Registry) *Session {
	return &Session{
		boundary: boundary,
		form:     fieldtree.NewNode(),
		files:    fieldtree.NewForest(),
		registry: registry,
	}
}

// Form returns the text fields as a node keyed by top-level field name.
func (s *Session) Form() *fieldtree.Value {
	return s.form
}

// Files returns the file fields, one tree per file attribute.
func (s *Session) Files() *fieldtree.Forest {
	return s.files
}

// Registry returns the temporary files created for this session.
func (s *Session) Registry() *tempstore.Registry {
	return s.registry
}

// Boundary returns the multipart boundary, empty when the body was not parsed.
func (s *Session) Boundary() string {
	return s.boundary
}

// Multipart reports whether the body was recognized and parsed.
func (s *Session) Multipart() bool {
	return s.boundary != ""
}

// Complete reports whether the closing boundary was reached. A parsed
// body that ended early still yields every part read up to that point.
func (s *Session) Complete() bool {
	return s.complete
}

// Fields returns the number of materialized text and file fields.
func (s *Session) Fields() int {
	return s.fields
}

// Release removes every temporary file created for this session. It works
// with a done ctx too; files that could not be removed are retried by the
// next call.
func (s *Session) Release(ctx context.Context) {
	s.registry.Release(ctx)
}

// FileInfo describes one uploaded file.
type FileInfo struct {
	Name    string
	Type    string
	TmpName string
	Error   tempstore.Code
	Size    int64
}

// OK reports whether the file was stored.
func (f FileInfo) OK() bool {
	return f.Error == tempstore.CodeOK && f.TmpName != ""
}

// File returns the file addressed by keys, for example File("docs", "0").
// It reports false when keys do not lead to a single file.
func (s *Session) File(keys ...string) (FileInfo, bool) {
	vals, ok := s.files.Lookup(keys...)
	if !ok {
		return FileInfo{}, false
	}

	var leaves [fieldtree.NumAttrs]string
	for i, v := range vals {
		if v.Kind() != fieldtree.KindLeaf {
			return FileInfo{}, false
		}
		leaves[i] = v.String()
	}

	code, err := strconv.Atoi(leaves[fieldtree.AttrError])
	if err != nil {
		return FileInfo{}, false
	}
	size, err := strconv.ParseInt(leaves[fieldtree.AttrSize], 10, 64)
	if err != nil {
		return FileInfo{}, false
	}

	return FileInfo{
		Name:    leaves[fieldtree.AttrName],
		Type:    leaves[fieldtree.AttrType],
		TmpName: leaves[fieldtree.AttrTmpName],
		Error:   tempstore.Code(code),
		Size:    size,
	}, true
}
