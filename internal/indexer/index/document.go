package index

// Document is a searchable post. Description is nil when the post has none,
// which is distinct from an empty description.
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Keywords    []string `json:"keywords"`
}

// HasDescription reports whether the document carries a description.
func (d Document) HasDescription() bool {
	return d.Description != nil
}

// SnippetSource returns the description when present, otherwise the title.
func (d Document) SnippetSource() string {
	if d.Description != nil {
		return *d.Description
	}
	return d.Title
}

// Store is an append-only sequence of documents addressed by their dense
// insertion position. Positions are never reused; Reset empties the store.
type Store struct {
	docs []Document
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{docs: make([]Document, 0)}
}

// Append stores doc and returns its position.
func (s *Store) Append(doc Document) int {
	s.docs = append(s.docs, doc)
	return len(s.docs) - 1
}

// Get returns the document at position.
func (s *Store) Get(position int) (Document, bool) {
	if position < 0 || position >= len(s.docs) {
		return Document{}, false
	}
	return s.docs[position], true
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	return len(s.docs)
}

// Reset drops every document.
func (s *Store) Reset() {
	s.docs = make([]Document, 0)
}
