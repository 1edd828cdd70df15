package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/OmGuptaIND/clipcam/recorder"
	"github.com/OmGuptaIND/clipcam/session"
)

type StoreOptions struct {
	// BaseURL prefixes every artifact handle, e.g. http://localhost:3000.
	BaseURL string
}

// AppStore holds the live capture sessions and the artifacts they produced.
// It is the recorder.ArtifactStore every session publishes to.
type AppStore struct {
	mu        sync.RWMutex
	sessions  map[string]*session.Session
	artifacts map[string]*recorder.Artifact

	baseURL string
}

func NewStore(opts StoreOptions) *AppStore {
	return &AppStore{
		sessions:  make(map[string]*session.Session),
		artifacts: make(map[string]*recorder.Artifact),
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
	}
}

// AddSession adds a session to the store.
func (s *AppStore) AddSession(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
}

// GetSession retrieves a session from the store.
func (s *AppStore) GetSession(id string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	return sess, ok
}

// RemoveSession removes a session from the store.
func (s *AppStore) RemoveSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

// ListSessions lists all sessions in the store.
func (s *AppStore) ListSessions() map[string]*session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make(map[string]*session.Session, len(s.sessions))
	for k, v := range s.sessions {
		sessions[k] = v
	}

	return sessions
}

// Put keeps the artifact and returns the URL it is served at.
func (s *AppStore) Put(a *recorder.Artifact) (string, error) {
	if a == nil || a.ID == "" {
		return "", fmt.Errorf("artifact has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.artifacts[a.ID]; ok {
		return "", fmt.Errorf("artifact %s already stored", a.ID)
	}
	s.artifacts[a.ID] = a

	return s.Handle(a.ID), nil
}

// Handle returns the URL of the artifact with the given id.
func (s *AppStore) Handle(id string) string {
	return fmt.Sprintf("%s/artifacts/%s", s.baseURL, id)
}

// GetArtifact retrieves an artifact from the store.
func (s *AppStore) GetArtifact(id string) (*recorder.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[id]
	return a, ok
}

// RemoveArtifact releases an artifact. It reports whether it was present.
func (s *AppStore) RemoveArtifact(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.artifacts[id]
	delete(s.artifacts, id)
	return ok
}

// Close closes every session and drops every artifact.
func (s *AppStore) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session.Session)
	s.artifacts = make(map[string]*recorder.Artifact)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
