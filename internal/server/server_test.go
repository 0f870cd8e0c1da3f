package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"formatls/internal/engine"
	"formatls/internal/engine/enginetest"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const docURI = "file:///work/app/a.js"

// fakeClient answers server-to-client requests from canned responses.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]any
	calls     map[string][]json.RawMessage
}

func newFakeClient() *fakeClient {
	return &fakeClient{responses: map[string]any{}, calls: map[string][]json.RawMessage{}}
}

func (c *fakeClient) Call(ctx context.Context, method string, params, result any, opts ...jsonrpc2.CallOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	c.calls[method] = append(c.calls[method], data)
	if result == nil {
		return nil
	}
	resp, err := json.Marshal(c.responses[method])
	if err != nil {
		return err
	}
	return json.Unmarshal(resp, result)
}

func (c *fakeClient) callCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls[method])
}

type harness struct {
	server *Server
	client *fakeClient
	engine *enginetest.Engine
}

func newHarness(t *testing.T, caps protocol.ClientCapabilities) *harness {
	t.Helper()
	h := &harness{
		client: newFakeClient(),
		engine: &enginetest.Engine{
			FormatFunc: func(text string, opts engine.Options) (string, error) {
				return strings.ReplaceAll(text, "=", " = "), nil
			},
		},
	}
	h.server = NewServer(Options{
		Version:  "test",
		Provider: &enginetest.Provider{Engine: h.engine},
	})
	h.server.client = h.client
	t.Cleanup(func() { h.server.Close() })

	result, err := h.server.initialize(&glsp.Context{}, &protocol.InitializeParams{
		Capabilities:     caps,
		WorkspaceFolders: []protocol.WorkspaceFolder{{URI: "file:///work", Name: "work"}},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	init := result.(protocol.InitializeResult)
	if init.Capabilities.DocumentFormattingProvider == nil || init.Capabilities.DocumentRangeFormattingProvider == nil {
		t.Errorf("formatting capabilities missing: %+v", init.Capabilities)
	}
	if init.ServerInfo == nil || init.ServerInfo.Name != Name {
		t.Errorf("server info = %+v", init.ServerInfo)
	}
	return h
}

func (h *harness) open(t *testing.T, text string) {
	t.Helper()
	err := h.server.textDocumentDidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: docURI, LanguageID: "javascript", Version: 1, Text: text},
	})
	if err != nil {
		t.Fatalf("didOpen: %v", err)
	}
}

func (h *harness) format(t *testing.T) []protocol.TextEdit {
	t.Helper()
	edits, err := h.server.textDocumentFormatting(&glsp.Context{}, &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
		Options:      protocol.FormattingOptions{"tabSize": float64(2), "insertSpaces": true},
	})
	if err != nil {
		t.Fatalf("formatting: %v", err)
	}
	if edits == nil {
		t.Fatal("formatting returned null instead of a list")
	}
	return edits
}

func pullCapabilities() protocol.ClientCapabilities {
	var caps protocol.ClientCapabilities
	if err := json.Unmarshal([]byte(`{"workspace":{"configuration":true,"workspaceFolders":true,"didChangeConfiguration":{"dynamicRegistration":true}}}`), &caps); err != nil {
		panic(err)
	}
	return caps
}

func TestFormattingPullsSettings(t *testing.T) {
	h := newHarness(t, pullCapabilities())
	h.client.responses["workspace/configuration"] = []any{map[string]any{"semi": false}}
	h.open(t, "let x=1")

	edits := h.format(t)
	if len(edits) != 1 || edits[0].NewText != " = " {
		t.Fatalf("edits = %+v", edits)
	}
	if h.engine.LastOptions["semi"] != false || h.engine.LastOptions["tabWidth"] != 2 {
		t.Errorf("options = %v", h.engine.LastOptions)
	}

	h.format(t)
	if n := h.client.callCount("workspace/configuration"); n != 1 {
		t.Fatalf("configuration requested %d times, want 1", n)
	}
	var params protocol.ConfigurationParams
	if err := json.Unmarshal(h.client.calls["workspace/configuration"][0], &params); err != nil {
		t.Fatal(err)
	}
	item := params.Items[0]
	if item.ScopeURI == nil || *item.ScopeURI != docURI || item.Section == nil || *item.Section != "prettier" {
		t.Errorf("configuration item = %+v", item)
	}
}

func TestFormattingPushedSettings(t *testing.T) {
	h := newHarness(t, protocol.ClientCapabilities{})
	h.open(t, "let x=1")

	err := h.server.workspaceDidChangeConfiguration(&glsp.Context{}, &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{"prettier": map[string]any{"enable": false}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if edits := h.format(t); len(edits) != 0 {
		t.Errorf("expected no edits, got %+v", edits)
	}
	if n := h.client.callCount("workspace/configuration"); n != 0 {
		t.Errorf("push mode sent %d configuration requests", n)
	}
}

func TestIncrementalChanges(t *testing.T) {
	h := newHarness(t, protocol.ClientCapabilities{})
	h.open(t, "let x=1")

	err := h.server.textDocumentDidChange(&glsp.Context{}, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEvent{
				Range: &protocol.Range{
					Start: protocol.Position{Line: 0, Character: 4},
					End:   protocol.Position{Line: 0, Character: 5},
				},
				Text: "y",
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	doc, ok := h.server.Session().Documents.Get(docURI)
	if !ok || doc.Text != "let y=1" || doc.Version != 2 {
		t.Errorf("document = %+v", doc)
	}

	if err := h.server.textDocumentDidClose(&glsp.Context{}, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	}); err != nil {
		t.Fatal(err)
	}
	if edits := h.format(t); len(edits) != 0 {
		t.Errorf("closed document formatted: %+v", edits)
	}
}

func TestRangeFormatting(t *testing.T) {
	h := newHarness(t, protocol.ClientCapabilities{})
	h.open(t, "a=1\nb=2\n")

	_, err := h.server.textDocumentRangeFormatting(&glsp.Context{}, &protocol.DocumentRangeFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
		Range: protocol.Range{
			Start: protocol.Position{Line: 1, Character: 0},
			End:   protocol.Position{Line: 1, Character: 3},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if h.engine.LastOptions["rangeStart"] != 4 || h.engine.LastOptions["rangeEnd"] != 7 {
		t.Errorf("range options = %v", h.engine.LastOptions)
	}
}

func TestFormattingError(t *testing.T) {
	h := newHarness(t, protocol.ClientCapabilities{})
	h.engine.FormatFunc = func(string, engine.Options) (string, error) {
		return "", errors.New("plugin crashed")
	}
	h.open(t, "let x=1")

	_, err := h.server.textDocumentFormatting(&glsp.Context{}, &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	})
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *jsonrpc2.Error, got %v", err)
	}
	if rpcErr.Code != jsonrpc2.CodeInternalError || !strings.Contains(rpcErr.Message, "plugin crashed") {
		t.Errorf("error = %d %q", rpcErr.Code, rpcErr.Message)
	}
}

func TestInitializedRegistersConfiguration(t *testing.T) {
	h := newHarness(t, pullCapabilities())
	if err := h.server.initialized(&glsp.Context{}, &protocol.InitializedParams{}); err != nil {
		t.Fatal(err)
	}
	h.server.background.Wait()
	if n := h.client.callCount("client/registerCapability"); n != 1 {
		t.Fatalf("registerCapability sent %d times, want 1", n)
	}
	if !strings.Contains(string(h.client.calls["client/registerCapability"][0]), `"section":"prettier"`) {
		t.Errorf("registration = %s", h.client.calls["client/registerCapability"][0])
	}

	h = newHarness(t, protocol.ClientCapabilities{})
	if err := h.server.initialized(&glsp.Context{}, &protocol.InitializedParams{}); err != nil {
		t.Fatal(err)
	}
	h.server.background.Wait()
	if n := h.client.callCount("client/registerCapability"); n != 0 {
		t.Errorf("registered without dynamic registration support")
	}
}

func TestWorkspaceFoldersRefreshed(t *testing.T) {
	h := newHarness(t, pullCapabilities())
	h.client.responses["workspace/workspaceFolders"] = []protocol.WorkspaceFolder{
		{URI: "file:///work", Name: "work"},
		{URI: "file:///work/app", Name: "app"},
	}

	err := h.server.workspaceDidChangeWorkspaceFolders(&glsp.Context{}, &protocol.DidChangeWorkspaceFoldersParams{})
	if err != nil {
		t.Fatal(err)
	}
	h.server.background.Wait()
	folder, ok := h.server.Session().Folders.Owner(docURI)
	if !ok || folder.Name != "app" {
		t.Errorf("owner = %+v, %v", folder, ok)
	}
}

func TestNotInitialized(t *testing.T) {
	s := NewServer(Options{})
	err := s.textDocumentDidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{})
	if !errors.Is(err, errNotInitialized) {
		t.Errorf("didOpen before initialize = %v", err)
	}
	if s.config.Section != "prettier" {
		t.Errorf("zero config not defaulted: %+v", s.config)
	}
}
