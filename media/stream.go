package media

import (
	"sync"

	"github.com/google/uuid"
)

// Track is one live audio or video track owned by a LiveStream.
type Track interface {
	ID() string
	Kind() Kind
	Label() string

	// Stop releases the underlying device. It is safe to call more than once.
	Stop()
	Stopped() bool
}

// LiveStream bundles live tracks. Whoever holds a LiveStream must Stop it
// before discarding it, otherwise the devices stay in use.
type LiveStream struct {
	id string

	mu     sync.RWMutex
	tracks []Track
}

// NewLiveStream returns an empty stream with a fresh ID.
func NewLiveStream(tracks ...Track) *LiveStream {
	s := &LiveStream{id: uuid.New().String()}
	s.tracks = append(s.tracks, tracks...)
	return s
}

func (s *LiveStream) ID() string {
	return s.id
}

// AddTrack appends t to the stream.
func (s *LiveStream) AddTrack(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracks = append(s.tracks, t)
}

// Tracks returns a copy of the stream's tracks in insertion order.
func (s *LiveStream) Tracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks := make([]Track, len(s.tracks))
	copy(tracks, s.tracks)
	return tracks
}

func (s *LiveStream) AudioTracks() []Track {
	return s.tracksOf(MicrophoneInput)
}

func (s *LiveStream) VideoTracks() []Track {
	return s.tracksOf(CameraInput)
}

func (s *LiveStream) tracksOf(kind Kind) []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tracks []Track
	for _, t := range s.tracks {
		if t.Kind() == kind {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// Stop stops every track of the stream.
func (s *LiveStream) Stop() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// Live reports whether any track is still running.
func (s *LiveStream) Live() bool {
	for _, t := range s.Tracks() {
		if !t.Stopped() {
			return true
		}
	}
	return false
}
