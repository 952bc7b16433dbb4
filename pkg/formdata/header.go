package formdata

import (
	"regexp"
	"strings"

	"github.com/dmitrymomot/restform/pkg/fieldtree"
)

type partKind uint8

const (
	partText partKind = iota + 1
	partBinary
)

// part describes one multipart section, resolved from its header block.
type part struct {
	kind     partKind
	path     []fieldtree.Segment
	filename string
	mime     string
	hasMime  bool
}

var (
	namePattern     = regexp.MustCompile(`\bname="([^"]+)"\B`)
	filenamePattern = regexp.MustCompile(`\bfilename="([^"]+)"`)

	nameCleaner = strings.NewReplacer("\r", "", "\n", "")
)

const contentTypePrefix = "content-type:"

// mimeFromLine returns the value of a Content-Type header line.
// Lines with an empty value are not treated as Content-Type lines.
func mimeFromLine(line []byte) (string, bool) {
	if len(line) < len(contentTypePrefix) ||
		!strings.EqualFold(string(line[:len(contentTypePrefix)]), contentTypePrefix) {
		return "", false
	}
	mime := strings.TrimSpace(string(line[len(contentTypePrefix):]))
	return mime, mime != ""
}

// parseHeader resolves the concatenated non Content-Type header lines of
// a part. Some clients split Content-Disposition over several physical
// lines, so the patterns run over the whole block rather than per line.
// It reports false when the part must be discarded.
func parseHeader(text, mime string, hasMime bool) (part, bool) {
	m := namePattern.FindStringSubmatch(text)
	if m == nil {
		return part{}, false
	}

	path, ok := fieldtree.ParsePath(nameCleaner.Replace(m[1]))
	if !ok {
		return part{}, false
	}

	p := part{kind: partText, path: path}
	if fm := filenamePattern.FindStringSubmatch(text); fm != nil {
		p.kind = partBinary
		p.filename = fm[1]
		p.mime = mime
		p.hasMime = hasMime
	}
	return p, true
}
