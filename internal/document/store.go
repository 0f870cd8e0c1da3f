// Package document keeps the text of the documents the client has open.
package document

import (
	"errors"
	"fmt"
	"sync"

	"formatls/internal/textedit"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ErrNotOpen is returned for documents the client has not opened.
var ErrNotOpen = errors.New("document not open")

// Document is an immutable snapshot of an open document.
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Text       string
}

// Store encapsulates the document state for each open URI.
type Store struct {
	mu   sync.Mutex
	docs map[string]Document
}

// NewStore creates an initialized Store.
func NewStore() *Store {
	return &Store{docs: make(map[string]Document)}
}

// Open records a newly opened document.
func (s *Store) Open(uri, languageID string, version int32, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = Document{URI: uri, LanguageID: languageID, Version: version, Text: text}
}

// Change applies content changes in order. Each element is either a
// protocol.TextDocumentContentChangeEvent (ranged) or a
// protocol.TextDocumentContentChangeEventWhole.
func (s *Store) Change(uri string, version int32, changes []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}

	text := doc.Text
	for _, raw := range changes {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				text = change.Text
				continue
			}
			text = textedit.Apply(text, protocol.TextEdit{Range: *change.Range, NewText: change.Text})
		case protocol.TextDocumentContentChangeEventWhole:
			text = change.Text
		default:
			return fmt.Errorf("unexpected change event type %T", raw)
		}
	}

	doc.Text = text
	doc.Version = version
	s.docs[uri] = doc
	return nil
}

// Get returns the current snapshot of a document.
func (s *Store) Get(uri string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// Close forgets a document.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}
