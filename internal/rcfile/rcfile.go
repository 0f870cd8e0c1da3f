// Package rcfile discovers the configuration files used by the native
// engines: .formatrc files, EditorConfig and ignore files.
package rcfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"
)

var log = commonlog.GetLogger("formatls.rcfile")

// Names are the config file names searched for, in order of precedence
// within one directory.
var Names = []string{
	".formatrc",
	".formatrc.json",
	".formatrc.yaml",
	".formatrc.yml",
	".formatrc.toml",
}

// Options controls Resolve.
type Options struct {
	// ConfigPath names the config file explicitly and disables the search.
	ConfigPath   string
	EditorConfig bool
	UseCache     bool
}

// Resolver finds and parses config files. Lookups are cached per directory
// and the cache is dropped whenever a watched directory changes.
type Resolver struct {
	mu      sync.Mutex
	found   map[string]string
	parsed  map[string]map[string]any
	ignores map[string]*ignoreFile

	watcher *fsnotify.Watcher
	watched map[string]struct{}
	done    chan struct{}
}

// NewResolver creates a Resolver. If no file watcher is available the cache
// only lasts until the next lookup with UseCache unset.
func NewResolver() *Resolver {
	r := &Resolver{
		found:   make(map[string]string),
		parsed:  make(map[string]map[string]any),
		ignores: make(map[string]*ignoreFile),
		watched: make(map[string]struct{}),
		done:    make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warningf("config files will not be watched: %v", err)
		close(r.done)
		return r
	}
	r.watcher = watcher
	go r.watch()
	return r
}

func (r *Resolver) watch() {
	defer close(r.done)
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
				log.Debugf("%s changed, dropping config cache", event.Name)
				r.Reset()
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher: %v", err)
		}
	}
}

// Close stops watching.
func (r *Resolver) Close() error {
	if r.watcher == nil {
		return nil
	}
	err := r.watcher.Close()
	<-r.done
	return err
}

// Reset drops every cached lookup.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found = make(map[string]string)
	r.parsed = make(map[string]map[string]any)
	r.ignores = make(map[string]*ignoreFile)
}

// Resolve returns the options governing path, or nil when neither a config
// file nor EditorConfig settings apply. Config file values override
// EditorConfig values.
func (r *Resolver) Resolve(path string, opts Options) (map[string]any, error) {
	configFile := opts.ConfigPath
	if configFile == "" {
		var err error
		configFile, err = r.Find(filepath.Dir(path), opts.UseCache)
		if err != nil {
			return nil, err
		}
	}

	var result map[string]any
	if opts.EditorConfig {
		ec, err := editorConfig(path)
		if err != nil {
			return nil, err
		}
		result = ec
	}

	if configFile != "" {
		options, err := r.load(configFile, opts.UseCache)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = make(map[string]any, len(options))
		}
		for k, v := range options {
			result[k] = v
		}
	}
	return result, nil
}

// Find walks up from dir and returns the first config file, or "".
func (r *Resolver) Find(dir string, useCache bool) (string, error) {
	var visited []string
	result := ""
	for current := filepath.Clean(dir); ; current = filepath.Dir(current) {
		if useCache {
			r.mu.Lock()
			cached, ok := r.found[current]
			r.mu.Unlock()
			if ok {
				result = cached
				break
			}
		}
		visited = append(visited, current)

		file, err := findIn(current)
		if err != nil {
			return "", err
		}
		if file != "" {
			result = file
			break
		}
		if parent := filepath.Dir(current); parent == current {
			break
		}
	}

	r.mu.Lock()
	for _, d := range visited {
		r.found[d] = result
	}
	r.mu.Unlock()
	r.watchDirs(visited)
	return result, nil
}

func findIn(dir string) (string, error) {
	for _, name := range Names {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", candidate, err)
		}
		if !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

func (r *Resolver) watchDirs(dirs []string) {
	if r.watcher == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range dirs {
		if _, ok := r.watched[d]; ok {
			continue
		}
		if err := r.watcher.Add(d); err != nil {
			log.Debugf("cannot watch %s: %v", d, err)
			continue
		}
		r.watched[d] = struct{}{}
	}
}

func (r *Resolver) load(file string, useCache bool) (map[string]any, error) {
	if useCache {
		r.mu.Lock()
		options, ok := r.parsed[file]
		r.mu.Unlock()
		if ok {
			return options, nil
		}
	}

	options, err := Load(file)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.parsed[file] = options
	r.mu.Unlock()
	r.watchDirs([]string{filepath.Dir(file)})
	return options, nil
}

// Load parses one config file. The format follows the extension; files
// without one are read as YAML, which also accepts JSON.
func Load(file string) (map[string]any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	options := map[string]any{}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		err = json.Unmarshal(data, &options)
	case ".toml":
		err = toml.Unmarshal(data, &options)
	default:
		err = yaml.Unmarshal(data, &options)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", file, err)
	}
	return options, nil
}
