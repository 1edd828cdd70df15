package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OmGuptaIND/clipcam/composer"
	"github.com/OmGuptaIND/clipcam/executor"
	"github.com/OmGuptaIND/clipcam/media"
	"github.com/OmGuptaIND/clipcam/permission"
	"github.com/OmGuptaIND/clipcam/prober"
	"github.com/OmGuptaIND/clipcam/recorder"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// finalizeTimeout bounds how long Close waits for a stopped pass to be
// stored.
const finalizeTimeout = 15 * time.Second

const (
	UnsupportedMessage      = "Sorry, your browser is not compatible with video recording."
	PermissionDeniedMessage = "Please grant permission to access media devices."
)

type Phase int

const (
	Loading Phase = iota
	Unsupported
	PermissionDenied
	Ready
	Error
	Closed
)

func (p Phase) String() string {
	switch p {
	case Unsupported:
		return "unsupported"
	case PermissionDenied:
		return "permission_denied"
	case Ready:
		return "ready"
	case Error:
		return "error"
	case Closed:
		return "closed"
	default:
		return "loading"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for _, candidate := range []Phase{Loading, Unsupported, PermissionDenied, Ready, Error, Closed} {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

type NewSessionOptions struct {
	Host    media.Host
	Store   recorder.ArtifactStore
	Encoder media.EncoderConfig

	OutputMimeType   string
	CountdownSeconds int
	TickInterval     time.Duration
	NewTicker        recorder.NewTickerFunc

	// OnStartRecord and OnStopRecord are delivered in order on a single
	// worker, never while the session is locked. They must not call Close.
	OnStartRecord func(sessionID string)
	OnStopRecord  func(sessionID, handle string)

	Logger *zap.Logger
}

// Session sequences capability probing, permission priming and preview
// composition, and drives one recorder over the active stream.
type Session struct {
	ID string

	// ops serializes control operations.
	ops sync.Mutex

	mu                sync.RWMutex
	phase             Phase
	capability        prober.CaptureCapability
	probed            bool
	permissionGranted bool
	facing            media.Facing
	stream            *media.LiveStream
	lastArtifact      string
	err               error

	recorder   *recorder.Session
	negotiator *permission.Negotiator
	composer   *composer.Composer
	hooks      *executor.WorkerExecutor

	ctx    context.Context
	cancel context.CancelFunc

	opts   NewSessionOptions
	logger *zap.Logger
}

func NewSession(opts NewSessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	logger := opts.Logger.With(zap.String("session", id))

	s := &Session{
		ID:         id,
		phase:      Loading,
		facing:     media.Front,
		negotiator: permission.NewNegotiator(opts.Host, logger),
		composer:   composer.New(opts.Host, logger),
		hooks: executor.NewWorkerExecutor(ctx, &executor.WorkerExecutorOptions{
			WorkerCount: 1,
			QueueSize:   16,
			Logger:      logger,
		}),
		ctx:    ctx,
		cancel: cancel,
		opts:   opts,
		logger: logger,
	}

	s.recorder = recorder.NewSession(recorder.NewSessionOptions{
		Host:             opts.Host,
		Store:            opts.Store,
		Encoder:          opts.Encoder,
		OutputMimeType:   opts.OutputMimeType,
		CountdownSeconds: opts.CountdownSeconds,
		TickInterval:     opts.TickInterval,
		NewTicker:        opts.NewTicker,
		OnStartRecord:    s.onStartRecord,
		OnStopRecord:     s.onStopRecord,
		Logger:           logger,
	})

	s.hooks.Start()

	return s
}

// Open probes the host, primes permission and composes the front camera
// preview. It may be called again after a permission refusal.
func (s *Session) Open(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if s.recorder.State() != recorder.Inactive {
		return media.ErrBusy
	}
	if err := s.recorder.WaitFinalized(ctx); err != nil {
		return fmt.Errorf("%w: %w", media.ErrBusy, err)
	}

	s.mu.Lock()
	if s.phase == Unsupported {
		s.mu.Unlock()
		return media.ErrUnsupportedEnvironment
	}
	s.phase = Loading
	s.lastArtifact = ""
	s.err = nil
	s.facing = media.Front
	old := s.stream
	s.stream = nil
	s.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	s.logger.Info("opening session")

	capability := prober.Probe(ctx, s.opts.Host, s.logger)

	s.mu.Lock()
	s.capability = capability
	s.probed = true
	s.mu.Unlock()

	if !capability.Compatible() {
		s.setPhase(Unsupported, nil)
		return media.ErrUnsupportedEnvironment
	}

	if err := s.negotiator.Request(ctx); err != nil {
		s.mu.Lock()
		s.permissionGranted = false
		s.mu.Unlock()
		s.setPhase(PermissionDenied, err)
		return err
	}

	s.mu.Lock()
	s.permissionGranted = true
	s.mu.Unlock()

	stream, err := s.composer.Compose(ctx, media.Front)
	if err != nil {
		s.setPhase(Error, err)
		return err
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
	s.setPhase(Ready, nil)

	s.logger.Info("session ready", zap.String("stream", stream.ID()))

	return nil
}

func (s *Session) StartRecording() error {
	s.ops.Lock()
	defer s.ops.Unlock()

	if err := s.guard(); err != nil {
		return err
	}

	s.mu.RLock()
	stream := s.stream
	s.mu.RUnlock()

	if stream == nil {
		return media.ErrNoActiveStream
	}

	return s.recorder.Start(stream)
}

// StopRecording ends the recording and returns the artifact handle.
func (s *Session) StopRecording() (string, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	if err := s.guard(); err != nil {
		return "", err
	}

	return s.recorder.Stop()
}

// SwitchCamera flips the facing camera. A running recording is paused across
// the switch and resumed on the new stream.
func (s *Session) SwitchCamera(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	if err := s.guard(); err != nil {
		return err
	}

	s.mu.RLock()
	old := s.stream
	s.mu.RUnlock()

	if old == nil {
		return media.ErrNoActiveStream
	}

	paused := false
	if s.recorder.State() == recorder.Recording {
		err := s.recorder.Pause()
		switch {
		case err == nil:
			paused = true
		case errors.Is(err, media.ErrNotRecording):
			// the countdown stopped it first
		default:
			return err
		}
	}
	if !paused {
		if err := s.recorder.WaitFinalized(ctx); err != nil {
			return fmt.Errorf("%w: %w", media.ErrBusy, err)
		}
	}

	old.Stop()

	s.mu.Lock()
	s.stream = nil
	s.facing = s.facing.Flip()
	facing := s.facing
	s.mu.Unlock()

	s.logger.Info("switching camera", zap.Stringer("facing", facing), zap.Bool("recording", paused))

	stream, err := s.composer.Compose(ctx, facing)
	if err != nil {
		s.abortRecording()
		s.setPhase(Error, err)
		return err
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	if paused {
		if err := s.recorder.Resume(stream); err != nil {
			s.abortRecording()
			s.setPhase(Error, err)
			return err
		}
	}

	return nil
}

// Close stops any recording without producing an artifact and releases every
// track. A pass the countdown already stopped is stored and its OnStopRecord
// delivered before Close returns. Closing twice is a no-op.
func (s *Session) Close() error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.RLock()
	closed := s.phase == Closed
	s.mu.RUnlock()

	if closed {
		return nil
	}

	s.logger.Info("closing session")

	s.abortRecording()

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	if err := s.recorder.WaitFinalized(ctx); err != nil {
		s.logger.Warn("gave up waiting for recording to finalize", zap.Error(err))
	}
	cancel()

	s.mu.Lock()
	old := s.stream
	s.stream = nil
	s.phase = Closed
	s.lastArtifact = ""
	s.err = nil
	s.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	s.hooks.Stop()
	s.hooks.Wait()
	s.cancel()

	return nil
}

// Preview returns the active stream, or nil.
func (s *Session) Preview() *media.LiveStream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stream
}

func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

type Snapshot struct {
	ID                string                   `json:"id"`
	Phase             Phase                    `json:"phase"`
	Supported         bool                     `json:"supported"`
	PermissionGranted bool                     `json:"permissionGranted"`
	Facing            media.Facing             `json:"facing"`
	Recording         recorder.State           `json:"recording"`
	Countdown         int                      `json:"countdown"`
	Chunks            int                      `json:"chunks"`
	Finalizable       bool                     `json:"finalizable"`
	Urgent            bool                     `json:"urgent"`
	LastArtifact      string                   `json:"lastArtifact,omitempty"`
	Capability        prober.CaptureCapability `json:"capability"`
	Message           string                   `json:"message,omitempty"`
	Err               string                   `json:"error,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		ID:                s.ID,
		Phase:             s.phase,
		Supported:         !s.probed || s.capability.Compatible(),
		PermissionGranted: s.permissionGranted,
		Facing:            s.facing,
		LastArtifact:      s.lastArtifact,
		Capability:        s.capability,
	}
	if s.err != nil {
		snap.Err = s.err.Error()
	}
	s.mu.RUnlock()

	switch snap.Phase {
	case Unsupported:
		snap.Message = UnsupportedMessage
	case PermissionDenied:
		snap.Message = PermissionDeniedMessage
	}

	rec := s.recorder.Snapshot()
	snap.Recording = rec.State
	snap.Chunks = rec.Chunks
	if rec.Countdown != nil {
		snap.Countdown = rec.Countdown.Remaining
		snap.Finalizable = rec.Countdown.Finalizable
		snap.Urgent = rec.Countdown.Urgent
	}

	return snap
}

func (s *Session) guard() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.phase == Closed {
		return media.ErrSessionClosed
	}
	return nil
}

func (s *Session) setPhase(p Phase, err error) {
	s.mu.Lock()
	s.phase = p
	s.err = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("session phase changed", zap.Stringer("phase", p), zap.Error(err))
	} else {
		s.logger.Debug("session phase changed", zap.Stringer("phase", p))
	}
}

func (s *Session) abortRecording() {
	if err := s.recorder.Abort(); err != nil && !errors.Is(err, media.ErrNotRecording) {
		s.logger.Error("failed to abort recording", zap.Error(err))
	}
}

func (s *Session) onStartRecord() {
	s.dispatch("start", func() {
		if s.opts.OnStartRecord != nil {
			s.opts.OnStartRecord(s.ID)
		}
	})
}

func (s *Session) onStopRecord(handle string) {
	s.mu.Lock()
	s.lastArtifact = handle
	s.mu.Unlock()

	s.dispatch("stop", func() {
		if s.opts.OnStopRecord != nil {
			s.opts.OnStopRecord(s.ID, handle)
		}
	})
}

func (s *Session) dispatch(name string, fn func()) {
	err := s.hooks.Enqueue(executor.Job{
		Id: fmt.Sprintf("%s_%s", s.ID, name),
		JobFunc: func() error {
			fn()
			return nil
		},
		OnError: func(err error) {
			s.logger.Error("hook failed", zap.String("hook", name), zap.Error(err))
		},
	})
	if err != nil {
		s.logger.Warn("hook dropped", zap.String("hook", name), zap.Error(err))
	}
}
