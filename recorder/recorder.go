package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OmGuptaIND/clipcam/media"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyRecording is returned by Start while a pass is in progress.
var ErrAlreadyRecording = errors.New("recording already in progress")

// State is the recording state of a Session.
type State int

const (
	Inactive State = iota
	Recording
	Paused
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	default:
		return "inactive"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type NewSessionOptions struct {
	Host    media.Host
	Store   ArtifactStore
	Encoder media.EncoderConfig

	// OutputMimeType is the media type of every artifact. Defaults to video/mp4.
	OutputMimeType   string
	CountdownSeconds int
	TickInterval     time.Duration
	NewTicker        NewTickerFunc

	// OnStartRecord and OnStopRecord are called without any lock held. The
	// session stays finalizing until OnStopRecord returns.
	OnStartRecord func()
	OnStopRecord  func(handle string)

	Logger *zap.Logger
}

// Session is one recording pass at a time over a live stream: it encodes
// fragments into a buffer, counts down to an automatic stop, and turns the
// buffer into an artifact when the pass ends.
type Session struct {
	ID string

	mu         sync.Mutex
	state      State
	finalizing bool
	settled    chan struct{}
	pass       uint64
	encoder    media.Encoder
	countdown  *Countdown
	disarm     func()

	chunkMu   sync.Mutex
	chunkPass uint64
	chunks    [][]byte

	opts   NewSessionOptions
	logger *zap.Logger
}

func NewSession(opts NewSessionOptions) *Session {
	if opts.OutputMimeType == "" {
		opts.OutputMimeType = "video/mp4"
	}
	if opts.CountdownSeconds <= 0 {
		opts.CountdownSeconds = 10
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	id := uuid.New().String()

	return &Session{
		ID:     id,
		opts:   opts,
		logger: opts.Logger.With(zap.String("recorder", id)),
	}
}

// Start begins a recording pass over stream and arms the countdown.
func (r *Session) Start(stream *media.LiveStream) error {
	r.mu.Lock()

	if r.finalizing {
		r.mu.Unlock()
		return media.ErrBusy
	}
	if r.state != Inactive {
		r.mu.Unlock()
		return fmt.Errorf("%w (current state: %s)", ErrAlreadyRecording, r.state)
	}
	if !hasVideo(stream) {
		r.mu.Unlock()
		return media.ErrNoActiveStream
	}

	enc, err := r.opts.Host.NewEncoder(r.opts.Encoder)
	if err != nil {
		r.mu.Unlock()
		if errors.Is(err, media.ErrNotSupported) {
			return fmt.Errorf("%w: %w", media.ErrUnsupportedEnvironment, err)
		}
		return fmt.Errorf("failed to create encoder: %w", err)
	}

	r.pass++
	pass := r.pass
	r.resetChunks(pass)

	if err := enc.Start(stream, func(data []byte) { r.appendFragment(pass, data) }); err != nil {
		r.resetChunks(0)
		r.mu.Unlock()
		return fmt.Errorf("failed to start encoder: %w", err)
	}

	r.encoder = enc
	r.state = Recording
	r.arm(pass)
	r.mu.Unlock()

	r.logger.Info("recording started", zap.Uint64("pass", pass), zap.String("stream", stream.ID()))

	if r.opts.OnStartRecord != nil {
		r.opts.OnStartRecord()
	}

	return nil
}

// Stop ends the current pass and publishes its artifact. The returned handle
// is the one passed to OnStopRecord.
func (r *Session) Stop() (string, error) {
	return r.stop(0)
}

// stop finalizes pass, or the current pass when pass is 0.
func (r *Session) stop(pass uint64) (string, error) {
	enc, current, err := r.detach(pass)
	if err != nil {
		return "", err
	}
	defer r.settle()

	if err := enc.Stop(); err != nil {
		r.logger.Error("failed to stop encoder", zap.Error(err))
	}

	chunks := r.drainChunks(current)
	artifact := NewArtifact(r.opts.OutputMimeType, chunks)

	var handle string
	err = errors.New("no artifact store configured")
	if r.opts.Store != nil {
		handle, err = r.opts.Store.Put(artifact)
	}
	if err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}

	r.logger.Info("recording stopped",
		zap.Uint64("pass", current),
		zap.Int("chunks", len(chunks)),
		zap.Int("bytes", artifact.Size()),
		zap.String("handle", handle),
	)

	if r.opts.OnStopRecord != nil {
		r.opts.OnStopRecord(handle)
	}

	return handle, nil
}

// Abort ends the current pass and discards everything it recorded.
func (r *Session) Abort() error {
	enc, current, err := r.detach(0)
	if err != nil {
		return err
	}

	if err := enc.Stop(); err != nil {
		r.logger.Error("failed to stop encoder", zap.Error(err))
	}

	dropped := r.drainChunks(current)
	r.settle()

	r.logger.Warn("recording aborted", zap.Uint64("pass", current), zap.Int("chunks", len(dropped)))

	return nil
}

// detach moves the session to Inactive and hands back the encoder to
// finalize. Fragments delivered while the encoder stops still reach the
// pass buffer.
func (r *Session) detach(pass uint64) (media.Encoder, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Inactive || (pass != 0 && pass != r.pass) {
		return nil, 0, media.ErrNotRecording
	}

	if r.disarm != nil {
		r.disarm()
		r.disarm = nil
	}
	r.countdown = nil

	enc := r.encoder
	r.encoder = nil
	r.state = Inactive
	r.finalizing = true
	r.settled = make(chan struct{})

	return enc, r.pass, nil
}

// settle ends the finalize started by detach.
func (r *Session) settle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finalizing = false
	if r.settled != nil {
		close(r.settled)
		r.settled = nil
	}
}

// Finalizing reports whether a stopped pass is still being turned into an
// artifact.
func (r *Session) Finalizing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalizing
}

// WaitFinalized blocks until no pass is finalizing. A pass stopped by the
// countdown has delivered OnStopRecord once this returns nil.
func (r *Session) WaitFinalized(ctx context.Context) error {
	r.mu.Lock()
	settled := r.settled
	r.mu.Unlock()

	if settled == nil {
		return nil
	}

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause suspends encoding and freezes the countdown.
func (r *Session) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return fmt.Errorf("%w (current state: %s)", media.ErrNotRecording, r.state)
	}

	if err := r.encoder.Pause(); err != nil {
		return fmt.Errorf("failed to pause encoder: %w", err)
	}

	r.state = Paused
	r.logger.Debug("recording paused", zap.Int("remaining", r.countdown.Remaining))

	return nil
}

// Resume continues a paused pass on stream, which may be a different stream
// from the one the pass started with.
func (r *Session) Resume(stream *media.LiveStream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Paused {
		return fmt.Errorf("%w (current state: %s)", media.ErrNotRecording, r.state)
	}
	if !hasVideo(stream) {
		return media.ErrNoActiveStream
	}

	if err := r.encoder.Resume(stream); err != nil {
		return fmt.Errorf("failed to resume encoder: %w", err)
	}

	r.state = Recording
	r.logger.Debug("recording resumed", zap.String("stream", stream.ID()))

	return nil
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	State      State      `json:"state"`
	Finalizing bool       `json:"finalizing"`
	Countdown  *Countdown `json:"countdown,omitempty"`
	Chunks     int        `json:"chunks"`
}

func (r *Session) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		State:      r.state,
		Finalizing: r.finalizing,
	}
	if r.countdown != nil {
		c := *r.countdown
		snap.Countdown = &c
	}

	r.chunkMu.Lock()
	snap.Chunks = len(r.chunks)
	r.chunkMu.Unlock()

	return snap
}

func (r *Session) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// arm starts the countdown for pass. Callers hold r.mu.
func (r *Session) arm(pass uint64) {
	r.countdown = newCountdown(r.opts.CountdownSeconds)

	ticker := r.opts.NewTicker(r.opts.TickInterval)
	done := make(chan struct{})

	var once sync.Once
	r.disarm = func() { once.Do(func() { close(done) }) }

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C():
				if r.tick(pass) {
					return
				}
			}
		}
	}()
}

// tick advances the countdown of pass and reports whether the ticking
// goroutine should exit.
func (r *Session) tick(pass uint64) bool {
	r.mu.Lock()

	if r.pass != pass || r.state == Inactive || r.countdown == nil {
		r.mu.Unlock()
		return true
	}
	if r.state == Paused {
		r.mu.Unlock()
		return false
	}

	expired := r.countdown.tick()
	r.mu.Unlock()

	if !expired {
		return false
	}

	r.logger.Info("countdown expired, stopping recording", zap.Uint64("pass", pass))
	if _, err := r.stop(pass); err != nil && !errors.Is(err, media.ErrNotRecording) {
		r.logger.Error("automatic stop failed", zap.Error(err))
	}

	return true
}

func (r *Session) resetChunks(pass uint64) {
	r.chunkMu.Lock()
	defer r.chunkMu.Unlock()

	r.chunkPass = pass
	r.chunks = nil
}

func (r *Session) appendFragment(pass uint64, data []byte) {
	if len(data) == 0 {
		return
	}

	r.chunkMu.Lock()
	defer r.chunkMu.Unlock()

	if pass != r.chunkPass {
		r.logger.Debug("dropping fragment from finished pass", zap.Uint64("pass", pass))
		return
	}

	r.chunks = append(r.chunks, data)
}

func (r *Session) drainChunks(pass uint64) [][]byte {
	r.chunkMu.Lock()
	defer r.chunkMu.Unlock()

	if pass != r.chunkPass {
		return nil
	}

	chunks := r.chunks
	r.chunks = nil
	r.chunkPass = 0

	return chunks
}

func hasVideo(stream *media.LiveStream) bool {
	return stream != nil && len(stream.VideoTracks()) > 0
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "inactive":
		*s = Inactive
	case "recording":
		*s = Recording
	case "paused":
		*s = Paused
	default:
		return fmt.Errorf("unknown recording state %q", b)
	}
	return nil
}
