package document_test

import (
	"errors"
	"testing"

	"formatls/internal/document"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func rng(startLine, startChar, endLine, endChar uint32) *protocol.Range {
	return &protocol.Range{
		Start: protocol.Position{Line: startLine, Character: startChar},
		End:   protocol.Position{Line: endLine, Character: endChar},
	}
}

func TestIncrementalChanges(t *testing.T) {
	s := document.NewStore()
	s.Open("file:///a.js", "javascript", 1, "let x=1\nlet y=2\n")

	err := s.Change("file:///a.js", 2, []any{
		protocol.TextDocumentContentChangeEvent{Range: rng(0, 5, 0, 6), Text: " = "},
		protocol.TextDocumentContentChangeEvent{Range: rng(1, 5, 1, 6), Text: " = "},
	})
	if err != nil {
		t.Fatalf("Change() error = %v", err)
	}

	doc, ok := s.Get("file:///a.js")
	if !ok {
		t.Fatal("document missing after change")
	}
	if want := "let x = 1\nlet y = 2\n"; doc.Text != want {
		t.Errorf("Text = %q, want %q", doc.Text, want)
	}
	if doc.Version != 2 || doc.LanguageID != "javascript" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestWholeDocumentChange(t *testing.T) {
	s := document.NewStore()
	s.Open("file:///a.js", "javascript", 1, "old")

	if err := s.Change("file:///a.js", 2, []any{protocol.TextDocumentContentChangeEventWhole{Text: "new"}}); err != nil {
		t.Fatal(err)
	}
	if doc, _ := s.Get("file:///a.js"); doc.Text != "new" {
		t.Errorf("Text = %q, want new", doc.Text)
	}

	if err := s.Change("file:///a.js", 3, []any{protocol.TextDocumentContentChangeEvent{Text: "newer"}}); err != nil {
		t.Fatal(err)
	}
	if doc, _ := s.Get("file:///a.js"); doc.Text != "newer" {
		t.Errorf("Text = %q, want newer", doc.Text)
	}
}

func TestChangeErrors(t *testing.T) {
	s := document.NewStore()
	if err := s.Change("file:///missing.js", 1, nil); !errors.Is(err, document.ErrNotOpen) {
		t.Errorf("Change(missing) error = %v, want ErrNotOpen", err)
	}

	s.Open("file:///a.js", "javascript", 1, "x")
	if err := s.Change("file:///a.js", 2, []any{"bogus"}); err == nil {
		t.Error("expected an error for an unknown change type")
	}
	if doc, _ := s.Get("file:///a.js"); doc.Text != "x" || doc.Version != 1 {
		t.Errorf("failed change modified the document: %+v", doc)
	}
}

func TestClose(t *testing.T) {
	s := document.NewStore()
	s.Open("file:///a.js", "javascript", 1, "x")
	s.Close("file:///a.js")
	if _, ok := s.Get("file:///a.js"); ok {
		t.Error("document still present after Close")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}
