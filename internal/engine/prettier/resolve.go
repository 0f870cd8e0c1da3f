package prettier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"formatls/internal/engine"
)

const moduleName = "prettier"

// commandRunner runs a command and returns its trimmed stdout.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// isModuleDir reports whether dir contains a package.json.
func isModuleDir(dir string) (bool, error) {
	info, err := os.Stat(filepath.Join(dir, "package.json"))
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// findLocal looks for node_modules/<name> in from and every parent, the way
// node resolves a bare module name from a file in from.
func findLocal(from, name string) (string, error) {
	for dir := filepath.Clean(from); ; dir = filepath.Dir(dir) {
		if filepath.Base(dir) != "node_modules" {
			candidate := filepath.Join(dir, "node_modules", name)
			ok, err := isModuleDir(candidate)
			if err != nil {
				return "", err
			}
			if ok {
				return candidate, nil
			}
		}
		if parent := filepath.Dir(dir); parent == dir {
			return "", nil
		}
	}
}

// resolve returns the prettier module directory to load for target.
func (p *Provider) resolve(ctx context.Context, target engine.Target, opts engine.LoadOptions) (string, error) {
	if target.Path != "" {
		dir, err := p.resolveLocal(target.Path, opts.EnginePath)
		if err != nil || dir != "" {
			return dir, err
		}
	}

	if opts.OnlyUseLocalVersion {
		return "", fmt.Errorf("%w: no local %s for %s", engine.ErrNotFound, moduleName, target.URI)
	}

	if opts.ResolveGlobalModules {
		root, err := p.globalRoot(ctx, opts.PackageManager)
		if err != nil {
			log.Warningf("cannot locate global modules: %v", err)
		} else {
			candidate := filepath.Join(root, moduleName)
			if ok, err := isModuleDir(candidate); err != nil {
				return "", err
			} else if ok {
				return candidate, nil
			}
		}
	}

	if p.fallback != "" {
		if ok, err := isModuleDir(p.fallback); err != nil {
			return "", err
		} else if ok {
			return p.fallback, nil
		}
		log.Warningf("fallback %s %s has no package.json", moduleName, p.fallback)
	}
	return "", fmt.Errorf("%w: %s is not installed for %s", engine.ErrNotFound, moduleName, target.URI)
}

func (p *Provider) resolveLocal(path, enginePath string) (string, error) {
	if enginePath == "" {
		return findLocal(filepath.Dir(path), moduleName)
	}
	if filepath.IsAbs(enginePath) {
		ok, err := isModuleDir(enginePath)
		if err != nil || !ok {
			return "", err
		}
		return enginePath, nil
	}
	// A bare module name, for forks published under another name.
	return findLocal(filepath.Dir(path), enginePath)
}

// globalRoot returns the global node_modules directory of a package
// manager.
func (p *Provider) globalRoot(ctx context.Context, packageManager string) (string, error) {
	p.mu.Lock()
	root, ok := p.globalRoots[packageManager]
	p.mu.Unlock()
	if ok {
		return root, nil
	}

	var err error
	switch packageManager {
	case "", "npm":
		root, err = p.run(ctx, "npm", "root", "--global")
	case "yarn":
		root, err = p.run(ctx, "yarn", "global", "dir")
		root = filepath.Join(root, "node_modules")
	case "pnpm":
		root, err = p.run(ctx, "pnpm", "root", "--global")
	default:
		return "", fmt.Errorf("unknown package manager %q", packageManager)
	}
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.globalRoots[packageManager] = root
	p.mu.Unlock()
	return root, nil
}

// moduleVersion reads the version field of a module's package.json.
func moduleVersion(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return "", err
	}
	var pkg struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("invalid package.json in %s: %w", dir, err)
	}
	return pkg.Version, nil
}
