package formdata

import (
	"regexp"
	"strings"
)

// boundaryPattern accepts exactly one form of header value; anything else
// (extra parameters, quoted tokens, other media types) is not parsed.
var boundaryPattern = regexp.MustCompile(`^multipart/form-data; boundary=([\w\-]+)$`)

// Boundary extracts the boundary token from a Content-Type header value.
// It reports false when the request is not a multipart/form-data request
// this package should parse: the content type does not match, the method
// is empty, or the method is one of skip (compared case-insensitively).
//
//	b, ok := formdata.Boundary("multipart/form-data; boundary=----x7", "PUT") // "----x7", true
//	_, ok = formdata.Boundary("application/json", "PUT")                        // false
func Boundary(contentType, method string, skip ...string) (string, bool) {
	if contentType == "" || method == "" {
		return "", false
	}
	for _, m := range skip {
		if strings.EqualFold(m, method) {
			return "", false
		}
	}

	m := boundaryPattern.FindStringSubmatch(contentType)
	if m == nil {
		return "", false
	}
	return m[1], true
}
