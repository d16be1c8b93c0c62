package batch

import (
	"context"
	"fmt"
	"sync"

	"facturas/pkg/models"
)

// Session holds the corpus of known invoices for one user. Batches run on
// the same session are serialized, and each sees the records of the ones
// before it.
type Session struct {
	UserID string

	run    sync.Mutex
	mu     sync.RWMutex
	corpus []models.CorpusEntry
}

// NewSession creates a session seeded with existing entries.
func NewSession(userID string, existing []models.CorpusEntry) *Session {
	corpus := make([]models.CorpusEntry, len(existing))
	copy(corpus, existing)
	return &Session{UserID: userID, corpus: corpus}
}

// Corpus returns a copy of the known entries.
func (s *Session) Corpus() []models.CorpusEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CorpusEntry, len(s.corpus))
	copy(out, s.corpus)
	return out
}

// Run processes a batch against the session corpus and adds every
// processed record to it.
func (s *Session) Run(ctx context.Context, p *Processor, files []models.Document, opts Options, onProgress ProgressFunc) []models.InvoiceRecord {
	s.run.Lock()
	defer s.run.Unlock()

	results := p.ProcessBatch(ctx, files, s.Corpus(), opts, onProgress)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		if r.Processed {
			s.corpus = append(s.corpus, r.Entry())
		}
	}
	return results
}

// CorpusLoader reads the persisted corpus of a user.
type CorpusLoader func(ctx context.Context, userID string) ([]models.CorpusEntry, error)

// Registry hands out one Session per user.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	load     CorpusLoader
}

// NewRegistry creates a registry. load may be nil, in which case sessions start empty.
func NewRegistry(load CorpusLoader) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		load:     load,
	}
}

// Session returns the user's session, loading its corpus on first use.
func (r *Registry) Session(ctx context.Context, userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[userID]; ok {
		return s, nil
	}

	var existing []models.CorpusEntry
	if r.load != nil {
		var err error
		existing, err = r.load(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("loading corpus for %s: %w", userID, err)
		}
	}

	s := NewSession(userID, existing)
	r.sessions[userID] = s
	return s, nil
}

// Drop forgets a user's session so the next request reloads it.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}
