package formatter

import (
	"context"
	"maps"
	"math"

	"formatls/internal/engine"
	"formatls/internal/metrics"
	"formatls/internal/textedit"
	"formatls/internal/workspace"

	"github.com/pkg/errors"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Edit is a text edit in LSP form.
type Edit = protocol.TextEdit

// Request is a textDocument/formatting or textDocument/rangeFormatting
// request.
type Request struct {
	URI string
	// Range limits formatting; nil formats the whole document.
	Range *protocol.Range
	// Options are the client's indentation hints, nil when absent.
	Options protocol.FormattingOptions
}

// format runs the pipeline and reports the outcome for metrics.
func (s *Session) format(ctx context.Context, req Request) ([]Edit, string, error) {
	doc, ok := s.Documents.Get(req.URI)
	if !ok {
		log.Debugf("%s is not open", req.URI)
		return nil, metrics.OutcomeSkipped, nil
	}

	set, err := s.Settings.Get(ctx, doc.URI)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to get settings")
	}
	if set.Disabled(doc.LanguageID) {
		log.Debugf("formatting disabled for %s", doc.URI)
		return nil, metrics.OutcomeSkipped, nil
	}

	var folder *protocol.WorkspaceFolder
	if f, ok := s.Folders.Owner(doc.URI); ok {
		folder = &f
	}

	target := engine.Target{URI: doc.URI, LanguageID: doc.LanguageID}
	fileBacked := workspace.IsFile(doc.URI)
	if fileBacked {
		if target.Path, err = workspace.URIToPath(doc.URI); err != nil {
			return nil, "", errors.WithStack(err)
		}
	}

	handle, warm, err := s.Engines.Load(ctx, doc.URI, target, engine.LoadOptions{
		OnlyUseLocalVersion:  set.OnlyUseLocalVersion,
		EnginePath:           workspace.ResolvePath(folder, set.PrettierPath),
		ResolveGlobalModules: set.ResolveGlobalModules,
		PackageManager:       set.PackageManager,
	})
	if err != nil {
		return nil, "", errors.WithStack(err)
	}
	if handle == nil {
		log.Infof("no engine available for %s", doc.URI)
		return nil, metrics.OutcomeSkipped, nil
	}
	eng := handle.Engine

	var resolved engine.Options
	if fileBacked {
		// Config files and EditorConfig only exist for local files.
		resolved, err = eng.ResolveConfig(ctx, target.Path, engine.ConfigOptions{
			ConfigPath:   workspace.ResolvePath(folder, set.ConfigPath),
			EditorConfig: set.UseEditorConfig,
			UseCache:     warm,
		})
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to resolve config")
		}
		if set.RequireConfig && resolved == nil {
			log.Debugf("no config file for %s", doc.URI)
			return nil, metrics.OutcomeSkipped, nil
		}
	}

	// Documents without a file still get a parser inferred from their name.
	path := target.Path
	if !fileBacked {
		path = workspace.URIPath(doc.URI)
	}
	info, err := eng.FileInfo(ctx, path, engine.FileInfoOptions{
		ResolveConfig:   fileBacked,
		IgnorePath:      workspace.ResolvePath(folder, set.IgnorePath),
		WithNodeModules: set.WithNodeModules,
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to get file info")
	}
	if info.Ignored {
		log.Debugf("%s is ignored", doc.URI)
		return nil, metrics.OutcomeSkipped, nil
	}

	opts, err := s.options(ctx, req, doc.LanguageID, info, handle)
	if err != nil {
		return nil, "", err
	}
	// Config file options and client settings are never mixed.
	if resolved != nil {
		maps.Copy(opts, resolved)
	} else {
		maps.Copy(opts, set.Options)
	}
	if path != "" {
		opts["filepath"] = path
	}
	if req.Range != nil {
		opts["rangeStart"] = textedit.OffsetAt(doc.Text, req.Range.Start)
		opts["rangeEnd"] = textedit.OffsetAt(doc.Text, req.Range.End)
	}

	formatted, err := eng.Format(ctx, doc.Text, opts)
	if engine.IsSyntaxError(err) {
		log.Debugf("cannot parse %s: %v", doc.URI, err)
		return nil, metrics.OutcomeSkipped, nil
	}
	if err != nil {
		return nil, "", errors.Wrapf(err, "%s failed to format", eng.Name())
	}

	edits := textedit.Minimal(doc.Text, formatted)
	if len(edits) == 0 {
		return nil, metrics.OutcomeNoop, nil
	}
	return edits, metrics.OutcomeEdit, nil
}

// options builds the base options: the indentation the client asked for
// and the parser.
func (s *Session) options(ctx context.Context, req Request, languageID string, info engine.FileInfo, handle *engine.Handle) (engine.Options, error) {
	opts := engine.Options{}
	if req.Options != nil {
		if tabSize, ok := number(req.Options["tabSize"]); ok {
			opts["tabWidth"] = tabSize
		}
		if insertSpaces, ok := req.Options["insertSpaces"].(bool); ok {
			opts["useTabs"] = !insertSpaces
		}
	}

	switch {
	case info.InferredParser != "":
		opts["parser"] = info.InferredParser
	case languageID == "html" || languageID == "json":
		// Support info maps these ids to the wrong parsers.
		opts["parser"] = languageID
	default:
		support, err := handle.SupportInfo(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get support info")
		}
		if parser := support.ParserFor(languageID); parser != "" {
			opts["parser"] = parser
		}
	}
	return opts, nil
}

// number converts a JSON number to an int when it is integral.
func number(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
		return n, true
	case int:
		return n, true
	case protocol.UInteger:
		return int(n), true
	}
	return nil, false
}
