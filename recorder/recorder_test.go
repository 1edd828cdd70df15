package recorder_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/OmGuptaIND/clipcam/media"
	"github.com/OmGuptaIND/clipcam/media/mediatest"
	"github.com/OmGuptaIND/clipcam/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu        sync.Mutex
	artifacts []*recorder.Artifact
}

func (s *memStore) Put(a *recorder.Artifact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, a)
	return "mem://" + a.ID, nil
}

func (s *memStore) all() []*recorder.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*recorder.Artifact(nil), s.artifacts...)
}

type fixture struct {
	host   *mediatest.Host
	store  *memStore
	ticker *mediatest.Ticker
	rec    *recorder.Session

	mu      sync.Mutex
	starts  int
	handles []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		host:   mediatest.NewHost(),
		store:  &memStore{},
		ticker: mediatest.NewTicker(),
	}
	f.rec = recorder.NewSession(recorder.NewSessionOptions{
		Host:      f.host,
		Store:     f.store,
		Encoder:   media.EncoderConfig{MimeType: "video/webm;codecs=h264"},
		NewTicker: func(time.Duration) recorder.Ticker { return f.ticker },
		OnStartRecord: func() {
			f.mu.Lock()
			f.starts++
			f.mu.Unlock()
		},
		OnStopRecord: func(handle string) {
			f.mu.Lock()
			f.handles = append(f.handles, handle)
			f.mu.Unlock()
		},
	})
	return f
}

func (f *fixture) stream(t *testing.T) *media.LiveStream {
	t.Helper()
	s, err := f.host.GetUserMedia(context.Background(), media.Constraints{
		Audio: &media.AudioConstraints{},
		Video: &media.VideoConstraints{FacingMode: "user"},
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) stopHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.handles...)
}

func (f *fixture) remaining() int {
	snap := f.rec.Snapshot()
	if snap.Countdown == nil {
		return -1
	}
	return snap.Countdown.Remaining
}

func TestStartWithoutStream(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.rec.Start(nil), media.ErrNoActiveStream)

	audioOnly, err := f.host.GetUserMedia(context.Background(), media.Constraints{Audio: &media.AudioConstraints{}})
	require.NoError(t, err)
	assert.ErrorIs(t, f.rec.Start(audioOnly), media.ErrNoActiveStream)

	snap := f.rec.Snapshot()
	assert.Equal(t, recorder.Inactive, snap.State)
	assert.Nil(t, snap.Countdown)
	assert.Empty(t, f.host.Encoders())
}

func TestHappyPathProducesOneArtifact(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.rec.Start(f.stream(t)))

	snap := f.rec.Snapshot()
	assert.Equal(t, recorder.Recording, snap.State)
	require.NotNil(t, snap.Countdown)
	assert.Equal(t, 10, snap.Countdown.Remaining)
	assert.False(t, snap.Countdown.Finalizable)
	assert.False(t, snap.Countdown.Urgent)

	enc := f.host.LastEncoder()
	enc.Emit([]byte("a"))
	enc.Emit(nil)
	enc.Emit([]byte("b"))
	enc.Tail = [][]byte{[]byte("c")}

	handle, err := f.rec.Stop()
	require.NoError(t, err)

	artifacts := f.store.all()
	require.Len(t, artifacts, 1)
	assert.Equal(t, "abc", string(artifacts[0].Data))
	assert.Equal(t, "video/mp4", artifacts[0].MediaType)
	assert.Equal(t, []string{handle}, f.stopHandles())
	assert.Equal(t, 1, f.starts)

	snap = f.rec.Snapshot()
	assert.Equal(t, recorder.Inactive, snap.State)
	assert.Zero(t, snap.Chunks)
	assert.Nil(t, snap.Countdown)
	assert.False(t, enc.Running())
}

func TestStopWhileInactive(t *testing.T) {
	f := newFixture(t)

	_, err := f.rec.Stop()
	assert.ErrorIs(t, err, media.ErrNotRecording)
	assert.Empty(t, f.store.all())
	assert.Empty(t, f.stopHandles())
	assert.Equal(t, recorder.Inactive, f.rec.State())
}

func TestStartWhileRecording(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t)

	require.NoError(t, f.rec.Start(s))
	assert.ErrorIs(t, f.rec.Start(s), recorder.ErrAlreadyRecording)
	assert.Len(t, f.host.Encoders(), 1)
}

func TestCountdownThresholdsAndExpiry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rec.Start(f.stream(t)))
	f.host.LastEncoder().Emit([]byte("x"))

	// The first tick shows the armed value.
	require.True(t, f.ticker.Tick())
	require.Eventually(t, func() bool { return f.remaining() == 10 }, time.Second, 5*time.Millisecond)

	require.True(t, f.ticker.TickN(4))
	require.Eventually(t, func() bool { return f.remaining() == 6 }, time.Second, 5*time.Millisecond)
	snap := f.rec.Snapshot()
	assert.False(t, snap.Countdown.Finalizable)
	assert.False(t, snap.Countdown.Urgent)

	require.True(t, f.ticker.Tick())
	require.Eventually(t, func() bool { return f.remaining() == 5 }, time.Second, 5*time.Millisecond)
	snap = f.rec.Snapshot()
	assert.True(t, snap.Countdown.Finalizable)
	assert.True(t, snap.Countdown.Urgent)
	assert.Empty(t, f.store.all())

	// 4, 3, 2, 1, then 0 stops the pass.
	require.True(t, f.ticker.TickN(5))
	require.Eventually(t, func() bool { return f.rec.State() == recorder.Inactive }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(f.stopHandles()) == 1 }, time.Second, 5*time.Millisecond)

	artifacts := f.store.all()
	require.Len(t, artifacts, 1)
	assert.Equal(t, "x", string(artifacts[0].Data))
	assert.False(t, f.ticker.Tick(), "countdown keeps ticking after expiry")
}

func TestManualStopRacingExpiryFinalizesOnce(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rec.Start(f.stream(t)))

	require.True(t, f.ticker.TickN(10))
	require.Eventually(t, func() bool { return f.remaining() == 1 }, time.Second, 5*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.ticker.Tick()
	}()
	go func() {
		defer wg.Done()
		_, err := f.rec.Stop()
		if err != nil {
			assert.ErrorIs(t, err, media.ErrNotRecording)
		}
	}()
	wg.Wait()

	require.Eventually(t, func() bool { return len(f.stopHandles()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, f.store.all(), 1)
	assert.Len(t, f.stopHandles(), 1)
	_, _, stops := f.host.LastEncoder().Counts()
	assert.Equal(t, 1, stops)
}

func TestPauseFreezesCountdownAndResumeKeepsOrder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rec.Start(f.stream(t)))
	enc := f.host.LastEncoder()

	enc.Emit([]byte("1"))
	enc.Emit([]byte("2"))
	require.True(t, f.ticker.TickN(2))
	require.Eventually(t, func() bool { return f.remaining() == 9 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.rec.Pause())
	assert.Equal(t, recorder.Paused, f.rec.State())
	assert.Error(t, f.rec.Pause())

	require.True(t, f.ticker.TickN(3))
	assert.Equal(t, 9, f.remaining())

	next := f.stream(t)
	require.NoError(t, f.rec.Resume(next))
	assert.Equal(t, recorder.Recording, f.rec.State())

	enc.Emit([]byte("3"))
	enc.Emit([]byte("4"))

	_, err := f.rec.Stop()
	require.NoError(t, err)

	artifacts := f.store.all()
	require.Len(t, artifacts, 1)
	assert.Equal(t, "1234", string(artifacts[0].Data))

	streams := enc.Streams()
	require.Len(t, streams, 2)
	assert.Equal(t, next.ID(), streams[1].ID())
}

func TestResumeRequiresPausedAndVideo(t *testing.T) {
	f := newFixture(t)
	s := f.stream(t)

	assert.ErrorIs(t, f.rec.Resume(s), media.ErrNotRecording)
	require.NoError(t, f.rec.Start(s))
	assert.ErrorIs(t, f.rec.Resume(s), media.ErrNotRecording)

	require.NoError(t, f.rec.Pause())
	assert.ErrorIs(t, f.rec.Resume(nil), media.ErrNoActiveStream)
	assert.Equal(t, recorder.Paused, f.rec.State())
}

func TestRestartResetsBufferAndCountdown(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.rec.Start(f.stream(t)))
	first := f.host.LastEncoder()
	first.Emit([]byte("old"))
	require.True(t, f.ticker.TickN(3))
	_, err := f.rec.Stop()
	require.NoError(t, err)

	require.NoError(t, f.rec.Start(f.stream(t)))
	assert.Equal(t, 10, f.remaining())
	assert.Zero(t, f.rec.Snapshot().Chunks)

	first.Emit([]byte("late"))
	f.host.LastEncoder().Emit([]byte("new"))

	_, err = f.rec.Stop()
	require.NoError(t, err)

	artifacts := f.store.all()
	require.Len(t, artifacts, 2)
	assert.Equal(t, "old", string(artifacts[0].Data))
	assert.Equal(t, "new", string(artifacts[1].Data))
}

func TestAbortDiscardsPass(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rec.Start(f.stream(t)))
	f.host.LastEncoder().Emit([]byte("gone"))

	require.NoError(t, f.rec.Abort())

	assert.Equal(t, recorder.Inactive, f.rec.State())
	assert.Empty(t, f.store.all())
	assert.Empty(t, f.stopHandles())
	assert.Zero(t, f.rec.Snapshot().Chunks)

	_, err := f.rec.Stop()
	assert.ErrorIs(t, err, media.ErrNotRecording)
	assert.ErrorIs(t, f.rec.Abort(), media.ErrNotRecording)
}

func TestEncoderUnsupported(t *testing.T) {
	f := newFixture(t)
	f.host.EncoderErr = media.ErrNotSupported

	err := f.rec.Start(f.stream(t))
	assert.ErrorIs(t, err, media.ErrUnsupportedEnvironment)
	assert.Equal(t, recorder.Inactive, f.rec.State())
	assert.Nil(t, f.rec.Snapshot().Countdown)
}

func TestNewArtifactConcatenates(t *testing.T) {
	a := recorder.NewArtifact("video/mp4", [][]byte{[]byte("ab"), []byte("cd")})

	assert.Equal(t, "abcd", string(a.Data))
	assert.Equal(t, 4, a.Size())
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestWaitFinalizedCoversStopHook(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rec.Start(f.stream(t)))
	require.NoError(t, f.rec.WaitFinalized(context.Background()))

	enc := f.host.LastEncoder()
	gate := make(chan struct{})
	enc.StopGate = gate

	require.True(t, f.ticker.TickN(11))
	require.Eventually(t, f.rec.Finalizing, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.rec.WaitFinalized(ctx), context.DeadlineExceeded)
	assert.ErrorIs(t, f.rec.Start(f.stream(t)), media.ErrBusy)

	close(gate)
	require.NoError(t, f.rec.WaitFinalized(context.Background()))
	assert.False(t, f.rec.Finalizing())
	assert.Len(t, f.stopHandles(), 1)
}
