package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"formatls/internal/formatter"
	"formatls/internal/server"
	"formatls/internal/textedit"
	"formatls/internal/workspace"

	"github.com/spf13/cobra"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var (
	languageID   string
	settingsFile string
	printDiff    bool
	writeBack    bool
	tabSize      int
	useTabs      bool
)

var formatCmd = &cobra.Command{
	Use:   "format <file>",
	Short: "Format a file the way the language server would",
	Long: `Format runs one formatting request through the same pipeline as the
language server and prints the result. Settings normally sent by the editor
can be given as a JSON file.`,
	Args: cobra.ExactArgs(1),
	RunE: runFormat,
}

func init() {
	flags := formatCmd.Flags()
	flags.StringVarP(&languageID, "language", "l", "", "language id (default: guessed from the file extension)")
	flags.StringVarP(&settingsFile, "settings", "s", "", "JSON file with editor settings")
	flags.BoolVarP(&printDiff, "diff", "d", false, "print the edit as JSON instead of the formatted text")
	flags.BoolVarP(&writeBack, "write", "w", false, "write the result back to the file")
	flags.IntVar(&tabSize, "tab-size", 2, "indentation width hint")
	flags.BoolVar(&useTabs, "use-tabs", false, "indent with tabs")
	formatCmd.MarkFlagsMutuallyExclusive("diff", "write")
}

var languageIDs = map[string]string{
	".css":     "css",
	".go":      "go",
	".graphql": "graphql",
	".html":    "html",
	".js":      "javascript",
	".json":    "json",
	".jsx":     "javascriptreact",
	".less":    "less",
	".md":      "markdown",
	".mjs":     "javascript",
	".scss":    "scss",
	".ts":      "typescript",
	".tsx":     "typescriptreact",
	".vue":     "vue",
	".yaml":    "yaml",
	".yml":     "yaml",
}

func runFormat(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engines := server.NewEngines(cfg)
	defer engines.Close()

	session := formatter.NewSession(engines.Provider, nil, nil)
	if settingsFile != "" {
		raw, err := readJSON(settingsFile)
		if err != nil {
			return err
		}
		if err := session.ConfigurationChanged(raw); err != nil {
			return err
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		session.Folders.Replace([]protocol.WorkspaceFolder{{URI: workspace.PathToURI(cwd), Name: filepath.Base(cwd)}})
	}

	lang := languageID
	if lang == "" {
		lang = languageIDs[strings.ToLower(filepath.Ext(path))]
	}
	uri := workspace.PathToURI(path)
	session.Documents.Open(uri, lang, 1, string(text))

	edits, err := session.Format(context.Background(), formatter.Request{
		URI:     uri,
		Options: protocol.FormattingOptions{"tabSize": float64(tabSize), "insertSpaces": !useTabs},
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case printDiff:
		if edits == nil {
			edits = []protocol.TextEdit{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(edits)
	case writeBack:
		if len(edits) == 0 {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		return os.WriteFile(path, []byte(textedit.ApplyAll(string(text), edits)), info.Mode())
	default:
		_, err := fmt.Fprint(out, textedit.ApplyAll(string(text), edits))
		return err
	}
}

func readJSON(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return v, nil
}
