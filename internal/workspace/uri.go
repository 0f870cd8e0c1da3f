package workspace

import (
	"fmt"
	"net/url"
	"path/filepath"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// IsFile reports whether uri uses the file scheme.
func IsFile(uri string) bool {
	u, err := url.Parse(uri)
	return err == nil && u.Scheme == "file"
}

// URIToPath converts a file URI to a filesystem path.
func URIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("uri %q is not a file uri", uri)
	}
	return filepath.FromSlash(u.Path), nil
}

// URIPath returns the path part of any uri, in filesystem form. For
// "untitled:Untitled-1.ts" that is "Untitled-1.ts". It is "" when uri does
// not parse or has no path.
func URIPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	return filepath.FromSlash(path)
}

// PathToURI converts an absolute filesystem path to a file URI.
func PathToURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// ResolvePath resolves a settings path against the owning folder. Absolute
// paths are returned unchanged. Relative paths need a folder with a file
// root; otherwise, and for empty input, the result is "".
func ResolvePath(folder *protocol.WorkspaceFolder, path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return path
	}
	if folder == nil {
		return ""
	}
	root, err := URIToPath(folder.URI)
	if err != nil {
		return ""
	}
	return filepath.Join(root, path)
}
