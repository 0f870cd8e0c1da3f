package server

import (
	contextpkg "context"
	"errors"

	"formatls/internal/formatter"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var errNotInitialized = errors.New("server is not initialized")

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	session := s.Session()
	if session == nil {
		return errNotInitialized
	}
	doc := params.TextDocument
	session.Documents.Open(doc.URI, doc.LanguageID, doc.Version, doc.Text)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	session := s.Session()
	if session == nil {
		return errNotInitialized
	}
	return session.Documents.Change(params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges)
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	session := s.Session()
	if session == nil {
		return errNotInitialized
	}
	session.DocumentClosed(params.TextDocument.URI)
	return nil
}

func (s *Server) textDocumentFormatting(
	context *glsp.Context,
	params *protocol.DocumentFormattingParams,
) ([]protocol.TextEdit, error) {
	return s.format(context, formatter.Request{
		URI:     params.TextDocument.URI,
		Options: params.Options,
	})
}

func (s *Server) textDocumentRangeFormatting(
	context *glsp.Context,
	params *protocol.DocumentRangeFormattingParams,
) ([]protocol.TextEdit, error) {
	return s.format(context, formatter.Request{
		URI:     params.TextDocument.URI,
		Range:   &params.Range,
		Options: params.Options,
	})
}

func (s *Server) format(context *glsp.Context, req formatter.Request) ([]protocol.TextEdit, error) {
	session := s.Session()
	if session == nil {
		return nil, errNotInitialized
	}

	edits, err := session.Format(contextpkg.Background(), req)
	if err != nil {
		var reqErr *formatter.RequestError
		if errors.As(err, &reqErr) {
			return nil, reqErr.JSONRPC()
		}
		return nil, err
	}
	if edits == nil {
		edits = []protocol.TextEdit{}
	}
	return edits, nil
}
