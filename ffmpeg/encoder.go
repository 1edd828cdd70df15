// Package ffmpeg records native capture devices with an ffmpeg child process
// that writes short segments, handed on as fragments by a chunker.Watcher.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/OmGuptaIND/clipcam/chunker"
	"github.com/OmGuptaIND/clipcam/media"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const stopTimeout = 10 * time.Second

type EncoderOptions struct {
	FFmpegPath string
	SegmentDir string
	Config     media.EncoderConfig

	ShowFfmpegLogs bool
	Logger         *zap.Logger
}

// Encoder is a media.Encoder. Pause ends the ffmpeg process; Resume starts a
// new one that continues the segment numbering.
type Encoder struct {
	ID string

	opts   EncoderOptions
	logger *zap.Logger

	mu      sync.Mutex
	dir     string
	watcher *chunker.Watcher
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	exited  chan error
	running bool
}

func NewEncoder(opts EncoderOptions) (*Encoder, error) {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.Config.Timeslice <= 0 {
		opts.Config.Timeslice = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if _, err := exec.LookPath(opts.FFmpegPath); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %w", media.ErrNotSupported, err)
	}

	id := uuid.New().String()

	return &Encoder{
		ID:     id,
		opts:   opts,
		logger: opts.Logger.With(zap.String("encoder", id)),
	}, nil
}

func (e *Encoder) Start(stream *media.LiveStream, onFragment media.FragmentFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.watcher != nil {
		return errors.New("encoder already started")
	}

	e.dir = filepath.Join(e.opts.SegmentDir, e.ID)

	watcher, err := chunker.NewWatcher(chunker.WatcherOptions{
		Dir:    e.dir,
		Ext:    ".webm",
		Logger: e.logger,
		OnChunk: func(_ chunker.ChunkInfo, data []byte) {
			onFragment(data)
		},
	})
	if err != nil {
		return err
	}

	if err := watcher.Start(context.Background()); err != nil {
		return err
	}

	e.watcher = watcher

	if err := e.launch(stream); err != nil {
		watcher.Stop()
		e.watcher = nil
		os.RemoveAll(e.dir)
		return err
	}

	return nil
}

func (e *Encoder) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return errors.New("ffmpeg is not running")
	}

	err := e.shutdown()
	e.watcher.Flush()
	return err
}

func (e *Encoder) Resume(stream *media.LiveStream) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.watcher == nil {
		return errors.New("encoder not started")
	}
	if e.running {
		return errors.New("ffmpeg is already running")
	}

	return e.launch(stream)
}

func (e *Encoder) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.watcher == nil {
		return errors.New("encoder not started")
	}

	var err error
	if e.running {
		err = e.shutdown()
	}

	e.watcher.Stop()
	e.watcher = nil

	if rmErr := os.RemoveAll(e.dir); rmErr != nil {
		e.logger.Warn("failed to remove segment directory", zap.Error(rmErr))
	}

	return err
}

// launch starts ffmpeg over stream. Callers hold e.mu.
func (e *Encoder) launch(stream *media.LiveStream) error {
	inputs, err := InputArgs(stream)
	if err != nil {
		return err
	}

	args := SegmentArgs(inputs, e.watcher.Pattern(), e.watcher.Next(), e.opts.Config.Timeslice)
	cmd := exec.Command(e.opts.FFmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdin pipe: %w", err)
	}

	if e.opts.ShowFfmpegLogs {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	e.cmd = cmd
	e.stdin = stdin
	e.exited = exited
	e.running = true

	e.logger.Info("ffmpeg started", zap.Int("pid", cmd.Process.Pid), zap.Int("segment", e.watcher.Next()))

	return nil
}

// shutdown asks ffmpeg to finish its last segment and kills it if it does not
// exit in time. Callers hold e.mu.
func (e *Encoder) shutdown() error {
	defer func() {
		e.cmd = nil
		e.stdin = nil
		e.running = false
	}()

	if _, err := e.stdin.Write([]byte("q")); err != nil {
		e.logger.Warn("failed to send quit to ffmpeg", zap.Error(err))
	}
	e.stdin.Close()

	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case err := <-e.exited:
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg wait failed: %w", err)
		}
		if exitErr != nil {
			e.logger.Warn("ffmpeg exited with status", zap.Int("code", exitErr.ExitCode()))
		}
	case <-timer.C:
		e.logger.Warn("ffmpeg didn't exit in time, force killing")
		if err := e.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill FFmpeg process: %w", err)
		}
		<-e.exited
	}

	e.logger.Info("ffmpeg stopped")

	return nil
}
