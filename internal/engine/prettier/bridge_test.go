package prettier

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"formatls/internal/engine"

	"github.com/sourcegraph/jsonrpc2"
)

type memorySupport struct {
	entries map[string]engine.SupportInfo
	puts    int
}

func (m *memorySupport) Get(engineID, version string) (engine.SupportInfo, error) {
	info, ok := m.entries[engineID+"@"+version]
	if !ok {
		return engine.SupportInfo{}, errors.New("not found")
	}
	return info, nil
}

func (m *memorySupport) Put(engineID, version string, info engine.SupportInfo) error {
	m.entries[engineID+"@"+version] = info
	m.puts++
	return nil
}

// fakeModule answers bridge calls the way bridge.js does.
func fakeModule(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "format":
		var params struct {
			Text string `json:"text"`
		}
		if err := jsonUnmarshalParams(req, &params); err != nil {
			return nil, err
		}
		if strings.Contains(params.Text, "{{") {
			return nil, &jsonrpc2.Error{Code: codeSyntaxError, Message: "Unexpected token (1:2)"}
		}
		if params.Text == "crash" {
			e := &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: "boom"}
			e.SetError(map[string]string{"stack": "at format (index.js:1:1)"})
			return nil, e
		}
		return strings.ToUpper(params.Text), nil
	case "resolveConfig":
		var params struct {
			Path string `json:"path"`
		}
		if err := jsonUnmarshalParams(req, &params); err != nil {
			return nil, err
		}
		if strings.HasSuffix(params.Path, ".md") {
			return nil, nil
		}
		return map[string]any{"semi": false}, nil
	case "getFileInfo":
		return engine.FileInfo{Ignored: true, InferredParser: "babel"}, nil
	case "getSupportInfo":
		return engine.SupportInfo{Languages: []engine.Language{
			{Name: "JavaScript", Parsers: []string{"babel"}, LanguageIDs: []string{"javascript"}},
		}}, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: req.Method}
}

func jsonUnmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return nil
	}
	return json.Unmarshal(*req.Params, v)
}

func newTestEngine(t *testing.T, support SupportCache) *moduleEngine {
	t.Helper()
	client, server := net.Pipe()
	serverConn := jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(server, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(fakeModule))
	b := newBridge("/fake/prettier", "3.3.0",
		jsonrpc2.NewBufferedStream(client, jsonrpc2.VSCodeObjectCodec{}))
	t.Cleanup(func() {
		b.close()
		serverConn.Close()
	})
	return &moduleEngine{bridge: b, support: support}
}

func TestModuleEngineFormat(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	got, err := e.Format(ctx, "let x", engine.Options{"parser": "babel"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "LET X" {
		t.Errorf("Format = %q", got)
	}

	_, err = e.Format(ctx, "{{", nil)
	if !engine.IsSyntaxError(err) {
		t.Fatalf("expected syntax error, got %v", err)
	}

	_, err = e.Format(ctx, "crash", nil)
	if err == nil || engine.IsSyntaxError(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if !strings.Contains(err.Error(), "index.js:1:1") {
		t.Errorf("stack missing from %q", err)
	}
}

func TestModuleEngineResolveConfig(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	opts, err := e.ResolveConfig(ctx, "/p/a.js", engine.ConfigOptions{UseCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if opts["semi"] != false {
		t.Errorf("ResolveConfig = %v", opts)
	}

	opts, err = e.ResolveConfig(ctx, "/p/README.md", engine.ConfigOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if opts != nil {
		t.Errorf("expected nil options without config, got %v", opts)
	}

	info, err := e.FileInfo(ctx, "/p/a.js", engine.FileInfoOptions{IgnorePath: "/p/.formatignore"})
	if err != nil {
		t.Fatal(err)
	}
	if !info.Ignored || info.InferredParser != "babel" {
		t.Errorf("FileInfo = %+v", info)
	}
}

func TestModuleEngineSupportInfoStored(t *testing.T) {
	support := &memorySupport{entries: map[string]engine.SupportInfo{}}
	e := newTestEngine(t, support)
	ctx := context.Background()

	for range 2 {
		info, err := e.SupportInfo(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got := info.ParserFor("javascript"); got != "babel" {
			t.Errorf("ParserFor = %q", got)
		}
	}
	if support.puts != 1 {
		t.Errorf("support info stored %d times, want 1", support.puts)
	}
	if _, ok := support.entries["/fake/prettier@3.3.0"]; !ok {
		t.Errorf("support info not keyed by module: %v", support.entries)
	}
}

func TestBridgeClosed(t *testing.T) {
	e := newTestEngine(t, nil)
	if err := e.bridge.close(); err != nil {
		t.Fatal(err)
	}
	if e.bridge.alive() {
		t.Error("bridge alive after close")
	}
	if _, err := e.Format(context.Background(), "x", nil); err == nil {
		t.Error("expected error on closed bridge")
	}
}

// TestNodeBridge runs the real bridge when node and prettier are available.
func TestNodeBridge(t *testing.T) {
	node, err := exec.LookPath("node")
	if err != nil {
		t.Skip("node not installed")
	}
	out, err := exec.Command("npm", "root", "--global").Output()
	if err != nil {
		t.Skip("npm not installed")
	}
	dir := filepath.Join(strings.TrimSpace(string(out)), "prettier")
	if ok, _ := isModuleDir(dir); !ok {
		t.Skip("prettier not installed globally")
	}

	p := NewProvider(node, dir, nil)
	t.Cleanup(func() { p.Close() })

	e, err := p.Load(context.Background(), engine.Target{URI: "untitled:1"}, engine.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Format(context.Background(), "let x=1", engine.Options{"parser": "babel"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "let x = 1;\n" {
		t.Errorf("Format = %q", got)
	}
}
