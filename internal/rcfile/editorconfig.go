package rcfile

import (
	"fmt"
	"strconv"

	"github.com/editorconfig/editorconfig-core-go/v2"
)

// editorConfig maps the EditorConfig properties for path to engine
// options. It returns nil when no property applies.
func editorConfig(path string) (map[string]any, error) {
	def, err := editorconfig.GetDefinitionForFilename(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read editorconfig for %s: %w", path, err)
	}

	options := map[string]any{}
	switch def.IndentStyle {
	case "tab":
		options["useTabs"] = true
	case "space":
		options["useTabs"] = false
	}

	if size, err := strconv.Atoi(def.IndentSize); err == nil {
		options["tabWidth"] = size
	} else if def.TabWidth > 0 {
		options["tabWidth"] = def.TabWidth
	}

	switch def.EndOfLine {
	case "lf", "crlf", "cr":
		options["endOfLine"] = def.EndOfLine
	}

	if width, err := strconv.Atoi(def.Raw["max_line_length"]); err == nil {
		options["printWidth"] = width
	}

	if len(options) == 0 {
		return nil, nil
	}
	return options, nil
}
