package request

import (
	"net/url"
	"strings"
)

// JoinSegments escapes each segment of a slash-separated sub-path and joins
// them back together. Leading and trailing slashes are ignored. ok is false
// when any segment is empty, "." or "..", so the result can never climb out of
// the prefix it is appended to. Reserved characters such as '?' and '#' stay
// inside their segment.
func JoinSegments(sub string) (joined string, ok bool) {
	sub = strings.Trim(sub, "/")
	if sub == "" {
		return "", true
	}
	parts := strings.Split(sub, "/")
	for i, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", false
		}
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/"), true
}
