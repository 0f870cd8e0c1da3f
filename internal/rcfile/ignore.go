package rcfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

type ignoreFile struct {
	dir     string
	matcher *ignore.GitIgnore
}

// Ignored reports whether path is excluded by the ignore file at
// ignorePath. Patterns are relative to the ignore file's directory, like
// .gitignore. Files inside node_modules are ignored unless withNodeModules
// is set.
func (r *Resolver) Ignored(path, ignorePath string, withNodeModules bool) (bool, error) {
	if !withNodeModules && slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "node_modules") {
		return true, nil
	}
	if ignorePath == "" {
		return false, nil
	}

	f, err := r.ignoreFile(ignorePath)
	if err != nil || f == nil {
		return false, err
	}

	rel, err := filepath.Rel(f.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}
	return f.matcher.MatchesPath(filepath.ToSlash(rel)), nil
}

func (r *Resolver) ignoreFile(ignorePath string) (*ignoreFile, error) {
	r.mu.Lock()
	f, ok := r.ignores[ignorePath]
	r.mu.Unlock()
	if ok {
		return f, nil
	}

	if _, err := os.Stat(ignorePath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat ignore file: %w", err)
		}
		f = nil
	} else {
		matcher, err := ignore.CompileIgnoreFile(ignorePath)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore file %s: %w", ignorePath, err)
		}
		f = &ignoreFile{dir: filepath.Dir(ignorePath), matcher: matcher}
	}

	r.mu.Lock()
	r.ignores[ignorePath] = f
	r.mu.Unlock()
	r.watchDirs([]string{filepath.Dir(ignorePath)})
	return f, nil
}
