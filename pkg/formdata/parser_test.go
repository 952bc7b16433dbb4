package formdata_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restform/pkg/fieldtree"
	"github.com/dmitrymomot/restform/pkg/formdata"
	"github.com/dmitrymomot/restform/pkg/tempstore"
)

const contentType = "multipart/form-data; boundary=XyZ"

// body joins lines with CRLF and terminates the last one.
func body(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

func newParser(t *testing.T, maxSize int64, opts ...formdata.Option) (*formdata.Parser, string) {
	t.Helper()
	dir := t.TempDir()
	return newParserIn(t, dir, maxSize, opts...), dir
}

func newParserIn(t *testing.T, dir string, maxSize int64, opts ...formdata.Option) *formdata.Parser {
	t.Helper()
	backend, err := tempstore.NewLocalBackend(dir)
	require.NoError(t, err)
	store, err := tempstore.New(backend, tempstore.WithMaxSize(maxSize))
	require.NoError(t, err)
	p, err := formdata.New(store, opts...)
	require.NoError(t, err)
	return p
}

func parse(t *testing.T, p *formdata.Parser, raw string) *formdata.Session {
	t.Helper()
	sess, err := p.Parse(context.Background(), contentType, http.MethodPut, strings.NewReader(raw))
	require.NoError(t, err)
	require.NotNil(t, sess)
	t.Cleanup(func() { sess.Release(context.Background()) })
	return sess
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func leaf(t *testing.T, v *fieldtree.Value, keys ...string) string {
	t.Helper()
	got, ok := v.Get(keys...)
	require.True(t, ok, "no value at %v", keys)
	require.Equal(t, fieldtree.KindLeaf, got.Kind())
	return got.String()
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := formdata.New(nil)
	assert.ErrorIs(t, err, formdata.ErrNilStore)
}

func TestParser_TextFields(t *testing.T) {
	t.Parallel()

	t.Run("nested names", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="user[name]"`,
			"",
			"Ann",
			"--XyZ",
			`Content-Disposition: form-data; name="user[email]"`,
			"",
			"a@x.com",
			"--XyZ--",
		))

		assert.JSONEq(t, `{"user":{"name":"Ann","email":"a@x.com"}}`, toJSON(t, sess.Form()))
		assert.True(t, sess.Files().IsEmpty())
		assert.True(t, sess.Multipart())
		assert.True(t, sess.Complete())
		assert.Equal(t, 2, sess.Fields())
		assert.Equal(t, "XyZ", sess.Boundary())
	})

	t.Run("lists and last write wins", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="tags[]"`,
			"",
			"go",
			"--XyZ",
			`Content-Disposition: form-data; name="tags[]"`,
			"",
			"php",
			"--XyZ",
			`Content-Disposition: form-data; name="title"`,
			"",
			"first",
			"--XyZ",
			`Content-Disposition: form-data; name="title"`,
			"",
			"second",
			"--XyZ--",
		))

		assert.Equal(t, `{"tags":["go","php"],"title":"second"}`, toJSON(t, sess.Form()))
	})

	t.Run("multi-line value keeps inner line breaks", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="note"`,
			"",
			"line1",
			"line2",
			"",
			"--XyZ--",
		))

		assert.Equal(t, "line1\r\nline2\r\n", leaf(t, sess.Form(), "note"))
	})

	t.Run("empty value", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="empty"`,
			"",
			"",
			"--XyZ--",
		))

		assert.Equal(t, "", leaf(t, sess.Form(), "empty"))
	})

	t.Run("content-disposition split over lines", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			"Content-Disposition: form-data;",
			` name="note"`,
			"",
			"hi",
			"--XyZ",
			`Content-Disposition: form-data; name="us`,
			`er"`,
			"",
			"Ann",
			"--XyZ--",
		))

		assert.Equal(t, "hi", leaf(t, sess.Form(), "note"))
		assert.Equal(t, "Ann", leaf(t, sess.Form(), "user"))
	})

	t.Run("malformed parts are dropped", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="hello[[world]"`,
			"",
			"dropped",
			"--XyZ",
			`Content-Disposition: form-data`,
			"",
			"no name",
			"--XyZ",
			`Content-Disposition: form-data; name="[x]"`,
			"",
			"empty base",
			"--XyZ",
			`Content-Disposition: form-data; name="kept"`,
			"",
			"yes",
			"--XyZ--",
		))

		assert.Equal(t, `{"kept":"yes"}`, toJSON(t, sess.Form()))
		assert.Equal(t, 1, sess.Fields())
	})

	t.Run("dots and spaces kept in base name", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="a.b c[d]"`,
			"",
			"v",
			"--XyZ--",
		))

		assert.Equal(t, "v", leaf(t, sess.Form(), "a.b c", "d"))
	})

	t.Run("append past largest index is dropped", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="a[9223372036854775807]"`,
			"",
			"x",
			"--XyZ",
			`Content-Disposition: form-data; name="a[]"`,
			"",
			"y",
			"--XyZ--",
		))

		assert.JSONEq(t, `{"a":{"9223372036854775807":"x"}}`, toJSON(t, sess.Form()))
		assert.Equal(t, 1, sess.Fields())
	})
}

func TestParser_Framing(t *testing.T) {
	t.Parallel()

	t.Run("preamble and epilogue ignored", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"This is a preamble.",
			"--XyZ",
			`Content-Disposition: form-data; name="a"`,
			"",
			"1",
			"--XyZ--",
			"--XyZ",
			`Content-Disposition: form-data; name="b"`,
			"",
			"2",
		))

		assert.Equal(t, `{"a":"1"}`, toJSON(t, sess.Form()))
		assert.True(t, sess.Complete())
	})

	t.Run("truncated body flushes pending part", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="a"`,
			"",
			"1",
			"--XyZ",
			`Content-Disposition: form-data; name="b"`,
			"",
		)+"hello")

		assert.Equal(t, `{"a":"1","b":"hello"}`, toJSON(t, sess.Form()))
		assert.False(t, sess.Complete())
	})

	t.Run("truncated headers drop the part", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="a"`,
		))

		assert.True(t, sess.Form().IsEmpty())
	})

	t.Run("closing boundary without trailing CRLF", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="a"`,
			"",
			"1",
		)+"--XyZ--")

		assert.Equal(t, `{"a":"1"}`, toJSON(t, sess.Form()))
		assert.True(t, sess.Complete())
	})

	t.Run("boundary-like lines inside values", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="a"`,
			"",
			"--XyZ ",
			"--XyZZ",
			"--XyZ--",
		))

		assert.Equal(t, "--XyZ \r\n--XyZZ", leaf(t, sess.Form(), "a"))
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, "")
		assert.True(t, sess.Form().IsEmpty())
		assert.False(t, sess.Complete())
	})
}

func TestParser_NotParsed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	unread := iotest.ErrReader(errors.New("body must not be read"))

	t.Run("other content type", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess, err := p.Parse(ctx, "application/json", http.MethodPut, unread)
		require.NoError(t, err)
		assert.False(t, sess.Multipart())
		assert.Equal(t, "{}", toJSON(t, sess.Form()))
		assert.Equal(t, `{}`, toJSON(t, sess.Files()))
	})

	t.Run("post is left to the server", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess, err := p.Parse(ctx, contentType, http.MethodPost, unread)
		require.NoError(t, err)
		assert.False(t, sess.Multipart())
	})

	t.Run("custom skip set", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0, formdata.WithSkipMethods("PUT"))
		sess, err := p.Parse(ctx, contentType, "put", unread)
		require.NoError(t, err)
		assert.False(t, sess.Multipart())
	})

	t.Run("nil body", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess, err := p.Parse(ctx, contentType, http.MethodPut, nil)
		require.NoError(t, err)
		assert.True(t, sess.Form().IsEmpty())
	})
}

func TestParser_Files(t *testing.T) {
	t.Parallel()

	t.Run("stored file", func(t *testing.T) {
		t.Parallel()
		p, dir := newParser(t, 1024)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="photo"; filename="p.jpg"`,
			"Content-Type: image/jpeg",
			"",
			"line one",
			"line two",
			"--XyZ--",
		))

		f, ok := sess.File("photo")
		require.True(t, ok)
		assert.True(t, f.OK())
		assert.Equal(t, "p.jpg", f.Name)
		assert.Equal(t, "image/jpeg", f.Type)
		assert.Equal(t, tempstore.CodeOK, f.Error)
		assert.Equal(t, int64(18), f.Size)
		assert.Equal(t, dir, filepath.Dir(f.TmpName))
		assert.True(t, strings.HasPrefix(filepath.Base(f.TmpName), "file_"))

		content, err := os.ReadFile(f.TmpName)
		require.NoError(t, err)
		assert.Equal(t, "line one\r\nline two", string(content))
		assert.Equal(t, []string{f.TmpName}, sess.Registry().Paths())
		assert.True(t, sess.Form().IsEmpty())

		sess.Release(context.Background())
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("release after the request context is done", func(t *testing.T) {
		t.Parallel()
		p, dir := newParser(t, 0)
		sess, err := p.Parse(context.Background(), contentType, http.MethodPut, strings.NewReader(body(
			"--XyZ",
			`Content-Disposition: form-data; name="photo"; filename="p.jpg"`,
			"Content-Type: image/jpeg",
			"",
			"abc",
			"--XyZ--",
		)))
		require.NoError(t, err)
		require.Len(t, dirEntries(t, dir), 1)

		done, cancel := context.WithCancel(context.Background())
		cancel()
		sess.Release(done)

		assert.Empty(t, dirEntries(t, dir))
		assert.Equal(t, 0, sess.Registry().Len())
	})

	t.Run("append past largest index drops the file", func(t *testing.T) {
		t.Parallel()
		p, dir := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="docs[9223372036854775807]"; filename="a.txt"`,
			"Content-Type: text/plain",
			"",
			"a",
			"--XyZ",
			`Content-Disposition: form-data; name="docs[]"; filename="b.txt"`,
			"Content-Type: text/plain",
			"",
			"b",
			"--XyZ--",
		))

		assert.Equal(t, 1, sess.Fields())
		assert.Len(t, dirEntries(t, dir), 1)
		assert.Equal(t, 1, sess.Registry().Len())
		names, ok := sess.Files().Tree(fieldtree.AttrName).Get("docs")
		require.True(t, ok)
		assert.Equal(t, []string{"9223372036854775807"}, names.Keys())
	})

	t.Run("oversized file", func(t *testing.T) {
		t.Parallel()
		p, dir := newParser(t, 5)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="photo"; filename="p.jpg"`,
			"Content-Type: image/jpeg",
			"",
			"0123456789",
			"--XyZ--",
		))

		files := sess.Files()
		assert.Equal(t, "p.jpg", leaf(t, files.Tree(fieldtree.AttrName), "photo"))
		assert.Equal(t, "image/jpeg", leaf(t, files.Tree(fieldtree.AttrType), "photo"))
		assert.Equal(t, "", leaf(t, files.Tree(fieldtree.AttrTmpName), "photo"))
		assert.Equal(t, "1", leaf(t, files.Tree(fieldtree.AttrError), "photo"))
		assert.Equal(t, "10", leaf(t, files.Tree(fieldtree.AttrSize), "photo"))
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("file at the size limit", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 5)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="photo"; filename="p.jpg"`,
			"Content-Type: image/jpeg",
			"",
			"01234",
			"--XyZ--",
		))

		f, ok := sess.File("photo")
		require.True(t, ok)
		assert.Equal(t, tempstore.CodeOK, f.Error)
		assert.Equal(t, int64(5), f.Size)
	})

	t.Run("missing temporary directory", func(t *testing.T) {
		t.Parallel()
		p := newParserIn(t, filepath.Join(t.TempDir(), "missing"), 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="photo"; filename="p.jpg"`,
			"Content-Type: image/jpeg",
			"",
			"abc",
			"--XyZ--",
		))

		f, ok := sess.File("photo")
		require.True(t, ok)
		assert.Equal(t, tempstore.CodeNoTmpDir, f.Error)
		assert.Equal(t, "", f.TmpName)
		assert.Equal(t, int64(3), f.Size)
	})

	t.Run("file without content type is dropped", func(t *testing.T) {
		t.Parallel()
		p, dir := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="photo"; filename="p.jpg"`,
			"Content-Type: ",
			"",
			"abc",
			"--XyZ--",
		))

		assert.True(t, sess.Files().IsEmpty())
		assert.True(t, sess.Form().IsEmpty())
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("content type header is case-insensitive", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`content-disposition: form-data; name="doc"; filename="a.txt"`,
			"CONTENT-TYPE:   text/plain  ",
			"",
			"x",
			"--XyZ--",
		))

		f, ok := sess.File("doc")
		require.True(t, ok)
		assert.Equal(t, "text/plain", f.Type)
	})

	t.Run("nested file list", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="docs[a][]"; filename="a.txt"`,
			"Content-Type: text/plain",
			"",
			"1",
			"--XyZ",
			`Content-Disposition: form-data; name="docs[a][]"; filename="b.txt"`,
			"Content-Type: text/plain",
			"",
			"22",
			"--XyZ",
			`Content-Disposition: form-data; name="caption"`,
			"",
			"two docs",
			"--XyZ--",
		))

		second, ok := sess.File("docs", "a", "1")
		require.True(t, ok)
		assert.Equal(t, "b.txt", second.Name)
		assert.Equal(t, int64(2), second.Size)

		_, ok = sess.File("docs", "a")
		assert.False(t, ok, "a list is not a single file")

		legacy := sess.Files().Legacy()
		assert.Equal(t, []string{"docs"}, legacy.Keys())
		assert.Equal(t, "a.txt", leaf(t, legacy, "docs", "name", "a", "0"))
		assert.Equal(t, "b.txt", leaf(t, legacy, "docs", "name", "a", "1"))
		assert.Equal(t, "0", leaf(t, legacy, "docs", "error", "a", "1"))
		assert.Equal(t, "2", leaf(t, legacy, "docs", "size", "a", "1"))

		assert.Equal(t, `{"caption":"two docs"}`, toJSON(t, sess.Form()))
		assert.Equal(t, 2, sess.Registry().Len())
		assert.Equal(t, 3, sess.Fields())
	})

	t.Run("lines longer than the read buffer", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0, formdata.WithBufferSize(4096))
		content := strings.Repeat("a", 10000)
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="blob"; filename="blob.bin"`,
			"Content-Type: application/octet-stream",
			"",
			content,
			"--XyZ--",
		))

		f, ok := sess.File("blob")
		require.True(t, ok)
		require.True(t, f.OK())
		assert.Equal(t, int64(len(content)), f.Size)
		stored, err := os.ReadFile(f.TmpName)
		require.NoError(t, err)
		assert.Equal(t, content, string(stored))
	})

	t.Run("oversized file longer than the read buffer", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 100, formdata.WithBufferSize(4096))
		sess := parse(t, p, body(
			"--XyZ",
			`Content-Disposition: form-data; name="blob"; filename="blob.bin"`,
			"Content-Type: application/octet-stream",
			"",
			strings.Repeat("b", 9000),
			"--XyZ--",
		))

		f, ok := sess.File("blob")
		require.True(t, ok)
		assert.Equal(t, tempstore.CodeSizeExceeded, f.Error)
		assert.Equal(t, int64(9000), f.Size)
	})
}

func TestParser_Failures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	filePart := body(
		"--XyZ",
		`Content-Disposition: form-data; name="photo"; filename="p.jpg"`,
		"Content-Type: image/jpeg",
		"",
		"abc",
	)

	t.Run("too many fields", func(t *testing.T) {
		t.Parallel()
		p, dir := newParser(t, 0, formdata.WithMaxFields(1))
		raw := filePart + body(
			"--XyZ",
			`Content-Disposition: form-data; name="a"`,
			"",
			"1",
			"--XyZ--",
		)

		sess, err := p.Parse(ctx, contentType, http.MethodPut, strings.NewReader(raw))
		assert.ErrorIs(t, err, formdata.ErrTooManyFields)
		assert.Nil(t, sess)
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("field limit not reached", func(t *testing.T) {
		t.Parallel()
		p, _ := newParser(t, 0, formdata.WithMaxFields(1))
		sess := parse(t, p, filePart+"--XyZ--\r\n")
		assert.Equal(t, 1, sess.Fields())
	})

	t.Run("read error", func(t *testing.T) {
		t.Parallel()
		p, dir := newParser(t, 0)
		r := io.MultiReader(
			strings.NewReader(filePart+body(
				"--XyZ",
				`Content-Disposition: form-data; name="a"`,
				"",
			)+"partial"),
			iotest.ErrReader(errors.New("connection reset")),
		)

		sess, err := p.Parse(ctx, contentType, http.MethodPut, r)
		assert.ErrorIs(t, err, formdata.ErrReadBody)
		assert.Nil(t, sess)
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("canceled context fails storage only", func(t *testing.T) {
		t.Parallel()
		p, dir := newParser(t, 0)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		raw := filePart + body(
			"--XyZ",
			`Content-Disposition: form-data; name="a"`,
			"",
			"1",
			"--XyZ--",
		)
		sess, err := p.Parse(cctx, contentType, http.MethodPut, strings.NewReader(raw))
		require.NoError(t, err)

		f, ok := sess.File("photo")
		require.True(t, ok)
		assert.Equal(t, tempstore.CodeCantWrite, f.Error)
		assert.Equal(t, "1", leaf(t, sess.Form(), "a"))
		assert.Empty(t, dirEntries(t, dir))
	})
}

func TestParser_ParseRequest(t *testing.T) {
	t.Parallel()
	p, _ := newParser(t, 0)

	req := httptest.NewRequest(http.MethodPatch, "/users/1", strings.NewReader(body(
		"--XyZ",
		`Content-Disposition: form-data; name="user[name]"`,
		"",
		"Bob",
		"--XyZ--",
	)))
	req.Header.Set("Content-Type", contentType)

	sess, err := p.ParseRequest(req)
	require.NoError(t, err)
	defer sess.Release(req.Context())
	assert.Equal(t, "Bob", leaf(t, sess.Form(), "user", "name"))
}
