package document

import (
	"encoding/json"
	"sync"
)

// Store is the per-client view of the shared canvas. The feed document is an
// immutable snapshot replaced wholesale on every fetch; the block table is
// the one piece of concurrently-mutated state and follows a last-writer-wins
// replacement discipline with no field merge, versioning, or transaction
// boundary.
type Store struct {
	mu     sync.RWMutex
	doc    json.RawMessage
	blocks map[string]Block
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{blocks: make(map[string]Block)}
}

// SetDocument replaces the feed document snapshot wholesale. The caller must
// not modify doc after handing it over.
func (s *Store) SetDocument(doc json.RawMessage) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// Document returns the current feed document snapshot.
func (s *Store) Document() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// ApplyBlock replaces the stored block of matching id with b in its
// entirety. Fields present in the previous version but absent from b are
// discarded; the most recently applied payload unconditionally wins.
func (s *Store) ApplyBlock(b Block) {
	if b.ID == "" {
		return
	}
	s.mu.Lock()
	s.blocks[b.ID] = b
	s.mu.Unlock()
}

// RemoveBlock deletes the block with the given id, if present.
func (s *Store) RemoveBlock(id string) {
	s.mu.Lock()
	delete(s.blocks, id)
	s.mu.Unlock()
}

// Block returns the block with the given id.
func (s *Store) Block(id string) (Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[id]
	return b, ok
}

// Blocks returns a copy of the block table.
func (s *Store) Blocks() []Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Block, 0, len(s.blocks))
	for _, b := range s.blocks {
		out = append(out, b)
	}
	return out
}

// Len returns the number of blocks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}
