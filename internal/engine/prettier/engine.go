package prettier

import (
	"context"

	"formatls/internal/engine"
)

// moduleEngine talks to one bridge.
type moduleEngine struct {
	bridge  *bridge
	support SupportCache
}

func (e *moduleEngine) Name() string {
	return "prettier@" + e.bridge.version
}

func (e *moduleEngine) ResolveConfig(ctx context.Context, path string, opts engine.ConfigOptions) (engine.Options, error) {
	params := map[string]any{
		"path":         path,
		"config":       opts.ConfigPath,
		"editorconfig": opts.EditorConfig,
		"useCache":     opts.UseCache,
	}
	var options engine.Options
	if err := e.bridge.call(ctx, "resolveConfig", params, &options); err != nil {
		return nil, err
	}
	return options, nil
}

func (e *moduleEngine) FileInfo(ctx context.Context, path string, opts engine.FileInfoOptions) (engine.FileInfo, error) {
	params := map[string]any{
		"path":            path,
		"ignorePath":      opts.IgnorePath,
		"withNodeModules": opts.WithNodeModules,
		"resolveConfig":   opts.ResolveConfig,
	}
	var info engine.FileInfo
	err := e.bridge.call(ctx, "getFileInfo", params, &info)
	return info, err
}

func (e *moduleEngine) SupportInfo(ctx context.Context) (engine.SupportInfo, error) {
	if e.support != nil {
		info, err := e.support.Get(e.bridge.dir, e.bridge.version)
		if err == nil {
			return info, nil
		}
		log.Debugf("support info for %s@%s not stored: %v", e.bridge.dir, e.bridge.version, err)
	}

	var info engine.SupportInfo
	if err := e.bridge.call(ctx, "getSupportInfo", nil, &info); err != nil {
		return engine.SupportInfo{}, err
	}

	if e.support != nil {
		if err := e.support.Put(e.bridge.dir, e.bridge.version, info); err != nil {
			log.Warningf("failed to store support info: %v", err)
		}
	}
	return info, nil
}

func (e *moduleEngine) Format(ctx context.Context, text string, opts engine.Options) (string, error) {
	params := map[string]any{
		"text":    text,
		"options": opts,
	}
	var formatted string
	if err := e.bridge.call(ctx, "format", params, &formatted); err != nil {
		return "", err
	}
	return formatted, nil
}
