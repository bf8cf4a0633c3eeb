package document

import (
	"net/url"
	"path"
	"strings"
)

// ResolveInternal maps a link destination found in the document at from onto
// a corpus-relative path. Destinations starting with "/" resolve against the
// corpus root, everything else against the linking document's directory.
// ok is false for external URLs, fragment-only links, and destinations that
// escape the corpus root.
func ResolveInternal(from, dest string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(dest))
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}

	var target string
	if strings.HasPrefix(u.Path, "/") {
		target = path.Clean(strings.TrimPrefix(u.Path, "/"))
	} else {
		target = path.Clean(path.Join(path.Dir(from), u.Path))
	}
	if target == "." || target == ".." || strings.HasPrefix(target, "../") {
		return "", false
	}
	return target, true
}
