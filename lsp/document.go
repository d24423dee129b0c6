// Copyright © 2024 The runcoliru authors

package lsp

import (
	"path"
	"sync"

	"github.com/luthersystems/runcoliru/source"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Document represents an open text document tracked by the LSP server.
type Document struct {
	mu      sync.Mutex
	URI     string
	Name    string // playground file name, the base name of the URI path
	Version int32
	Content string

	// compiled holds the markers of the last compilation. They stay until
	// the next compilation replaces them.
	compiled []protocol.Diagnostic
}

// File returns the document as a playground file.
func (d *Document) File() source.File {
	d.mu.Lock()
	defer d.mu.Unlock()
	return source.File{Name: d.Name, Content: d.Content}
}

// DocumentStore manages open documents with thread-safe access. Documents
// are kept in the order they were opened, which is the order of the files
// sent to the compiler.
type DocumentStore struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	order []string
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*Document)}
}

// Open adds a document to the store. Reopening a URI replaces its content
// and keeps its position.
func (s *DocumentStore) Open(uri string, version int32, content string) *Document {
	doc := &Document{
		URI:     uri,
		Name:    path.Base(uriToPath(uri)),
		Version: version,
		Content: content,
	}
	s.mu.Lock()
	if _, ok := s.docs[uri]; !ok {
		s.order = append(s.order, uri)
	}
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Change updates a document's content (full sync).
func (s *DocumentStore) Change(uri string, version int32, content string) *Document {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &Document{URI: uri, Name: path.Base(uriToPath(uri))}
		s.docs[uri] = doc
		s.order = append(s.order, uri)
	}
	s.mu.Unlock()

	doc.mu.Lock()
	doc.Version = version
	doc.Content = content
	doc.mu.Unlock()
	return doc
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[uri]; !ok {
		return
	}
	delete(s.docs, uri)
	for i, u := range s.order {
		if u == uri {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get retrieves a document by URI. Returns nil if not found.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// All returns the open documents in the order they were opened.
func (s *DocumentStore) All() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.order))
	for _, uri := range s.order {
		out = append(out, s.docs[uri])
	}
	return out
}

// Files returns a snapshot of the open documents as playground files.
func (s *DocumentStore) Files() []source.File {
	docs := s.All()
	files := make([]source.File, len(docs))
	for i, d := range docs {
		files[i] = d.File()
	}
	return files
}
