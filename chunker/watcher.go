// Package chunker turns a directory of numbered segment files into an
// ordered stream of fragments.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/OmGuptaIND/clipcam/pkg"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type ChunkInfo struct {
	Index int
	Name  string
	Path  string
	Size  int64
}

type WatcherOptions struct {
	Dir string

	// Prefix and Ext frame the five digit segment index: chunk_00000.webm.
	Prefix string
	Ext    string

	// OnChunk receives every complete segment, in index order.
	OnChunk func(info ChunkInfo, data []byte)

	// Keep leaves consumed segments on disk.
	Keep bool

	Logger *zap.Logger
}

// Watcher delivers segment N once segment N+1 shows up, which is when the
// writer has finished with N. Flush delivers the rest once the writer is gone.
type Watcher struct {
	opts      WatcherOptions
	fsWatcher *fsnotify.Watcher
	logger    *zap.Logger

	mu   sync.Mutex
	next int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if opts.Dir == "" {
		return nil, errors.New("watcher needs a directory")
	}
	if opts.Prefix == "" {
		opts.Prefix = "chunk_"
	}
	if opts.Ext == "" {
		opts.Ext = ".webm"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := pkg.CreateDirectory(opts.Dir); err != nil {
		return nil, err
	}

	return &Watcher{
		opts:   opts,
		logger: opts.Logger.With(zap.String("dir", opts.Dir)),
	}, nil
}

// ChunkName returns the file name of segment i.
func (w *Watcher) ChunkName(i int) string {
	return fmt.Sprintf("%s%05d%s", w.opts.Prefix, i, w.opts.Ext)
}

// Pattern is the printf pattern ffmpeg's segment muxer writes to.
func (w *Watcher) Pattern() string {
	return filepath.Join(w.opts.Dir, w.opts.Prefix+"%05d"+w.opts.Ext)
}

// Next returns the index of the first segment not yet delivered.
func (w *Watcher) Next() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next
}

// Start watches the directory until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := fsWatcher.Add(w.opts.Dir); err != nil {
		fsWatcher.Close()
		return err
	}

	w.fsWatcher = fsWatcher
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.watch(ctx)
	}()

	w.logger.Debug("watcher started")

	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.grabChunks(false)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// Flush delivers every remaining segment, including the newest one. Call it
// only when nothing is writing to the directory.
func (w *Watcher) Flush() {
	w.grabChunks(true)
}

// Stop stops watching and flushes what is left.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	w.wg.Wait()

	w.Flush()

	w.logger.Debug("watcher stopped", zap.Int("chunks", w.Next()))
}

// grabChunks delivers segments starting at w.next until one is missing or,
// unless final, still being written.
func (w *Watcher) grabChunks(final bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		chunkName := w.ChunkName(w.next)
		chunkPath := filepath.Join(w.opts.Dir, chunkName)

		info, err := os.Stat(chunkPath)
		if err != nil {
			return
		}

		if !final {
			if _, err := os.Stat(filepath.Join(w.opts.Dir, w.ChunkName(w.next+1))); err != nil {
				return
			}
		}

		data, err := os.ReadFile(chunkPath)
		if err != nil {
			w.logger.Error("failed to read chunk", zap.String("chunk", chunkName), zap.Error(err))
			return
		}

		w.logger.Debug("chunk found", zap.String("chunk", chunkName), zap.Int64("size", info.Size()))

		if w.opts.OnChunk != nil {
			w.opts.OnChunk(ChunkInfo{
				Index: w.next,
				Name:  chunkName,
				Path:  chunkPath,
				Size:  info.Size(),
			}, data)
		}

		if !w.opts.Keep {
			if err := os.Remove(chunkPath); err != nil {
				w.logger.Warn("failed to remove chunk", zap.String("chunk", chunkName), zap.Error(err))
			}
		}

		w.next++
	}
}
