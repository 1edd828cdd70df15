// Package browser is the media.Host backed by a Chromium page driven over the
// DevTools protocol: devices, tracks and MediaRecorder all live in the page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/OmGuptaIND/clipcam/media"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const stopTimeout = 10 * time.Second

type HostOptions struct {
	ChromePath string
	Headless   bool

	// FakeMedia makes Chromium grant every request and feed synthetic devices.
	FakeMedia bool

	Width  int
	Height int

	// Display runs Chromium headful on an Xvfb server with this display name.
	Display string

	Logger *zap.Logger
}

type Host struct {
	opts   HostOptions
	logger *zap.Logger

	xvfb *Xvfb

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	mu        sync.Mutex
	fragments map[string]media.FragmentFunc
	stopped   map[string]chan struct{}
}

// NewHost launches Chromium and prepares a blank page for capture.
func NewHost(ctx context.Context, opts HostOptions) (*Host, error) {
	if opts.ChromePath == "" {
		opts.ChromePath = "chromium"
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 720
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	h := &Host{
		opts:      opts,
		logger:    opts.Logger.Named("browser"),
		fragments: make(map[string]media.FragmentFunc),
		stopped:   make(map[string]chan struct{}),
	}

	if opts.Display != "" && !opts.Headless {
		h.xvfb = NewXvfb(XvfbOptions{Display: opts.Display, Width: opts.Width, Height: opts.Height, Depth: 24, Logger: h.logger})
		if err := h.xvfb.Launch(); err != nil {
			return nil, err
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, h.allocatorOptions()...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	h.allocCancel = allocCancel
	h.ctx = browserCtx
	h.cancel = cancel

	chromedp.ListenTarget(browserCtx, h.onEvent)

	var ready bool
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		runtime.AddBinding(fragmentBinding),
		runtime.AddBinding(stoppedBinding),
		chromedp.Evaluate(bootstrap, &ready),
	)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("%w: chromium: %w", media.ErrNotSupported, err)
	}

	h.logger.Info("chromium launched", zap.String("path", opts.ChromePath), zap.Bool("headless", opts.Headless))

	return h, nil
}

func (h *Host) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(h.opts.ChromePath),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,

		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		chromedp.Flag("window-size", fmt.Sprintf("%d,%d", h.opts.Width, h.opts.Height)),
	}

	if h.opts.FakeMedia {
		opts = append(opts,
			chromedp.Flag("use-fake-ui-for-media-stream", true),
			chromedp.Flag("use-fake-device-for-media-stream", true),
		)
	}

	if h.opts.Headless {
		opts = append(opts, chromedp.Headless)
	} else if h.opts.Display != "" {
		opts = append(opts, chromedp.Flag("display", h.opts.Display))
	}

	return opts
}

func (h *Host) onEvent(ev any) {
	called, ok := ev.(*runtime.EventBindingCalled)
	if !ok {
		return
	}

	switch called.Name {
	case fragmentBinding:
		id, data, err := decodeFragment(called.Payload)
		if err != nil {
			h.logger.Warn("dropping fragment", zap.Error(err))
			return
		}
		h.mu.Lock()
		onFragment := h.fragments[id]
		h.mu.Unlock()
		if onFragment != nil {
			onFragment(data)
		}

	case stoppedBinding:
		id, err := decodeStopped(called.Payload)
		if err != nil {
			h.logger.Warn("bad stop notification", zap.Error(err))
			return
		}
		h.mu.Lock()
		done := h.stopped[id]
		delete(h.stopped, id)
		delete(h.fragments, id)
		h.mu.Unlock()
		if done != nil {
			close(done)
		}
	}
}

func (h *Host) evaluate(ctx context.Context, expr string, res any) error {
	runCtx := h.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(h.ctx, deadline)
		defer cancel()
	}

	return chromedp.Run(runCtx, chromedp.Evaluate(expr, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

func (h *Host) EnumerateDevices(ctx context.Context) ([]media.RawDevice, error) {
	var devices *[]pageDevice

	if err := h.evaluate(ctx, `window.__clipcam.enumerate()`, &devices); err != nil {
		return nil, err
	}
	if devices == nil {
		return nil, media.ErrNotSupported
	}

	raw := make([]media.RawDevice, 0, len(*devices))
	for _, d := range *devices {
		raw = append(raw, media.RawDevice{DeviceID: d.DeviceID, Kind: d.Kind, Label: d.Label})
	}
	return raw, nil
}

func (h *Host) GetUserMedia(ctx context.Context, c media.Constraints) (*media.LiveStream, error) {
	expr, err := call("getUserMedia", pageConstraints(c))
	if err != nil {
		return nil, err
	}

	var tracks []pageTrack
	if err := h.evaluate(ctx, expr, &tracks); err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("%w: %w", media.ErrPermissionDenied, err)
		}
		return nil, err
	}

	stream := media.NewLiveStream()
	for _, t := range tracks {
		id := t.ID
		stream.AddTrack(media.NewTrack(id, media.ParseKind(t.Kind+"input"), t.Label, func() {
			h.stopTrack(id)
		}))
	}

	return stream, nil
}

func (h *Host) stopTrack(id string) {
	expr, _ := call("stopTrack", id)
	var ok bool
	if err := h.evaluate(context.Background(), expr, &ok); err != nil {
		h.logger.Warn("failed to stop track", zap.String("track", id), zap.Error(err))
	}
}

func (h *Host) NewEncoder(config media.EncoderConfig) (media.Encoder, error) {
	if h.ctx.Err() != nil {
		return nil, fmt.Errorf("%w: browser closed", media.ErrNotSupported)
	}
	if config.Timeslice <= 0 {
		config.Timeslice = time.Second
	}
	return &encoder{host: h, config: config}, nil
}

// startRecorder starts page recorder id over the stream's tracks.
func (h *Host) startRecorder(id string, stream *media.LiveStream, config media.EncoderConfig, onFragment media.FragmentFunc) error {
	var trackIDs []string
	for _, t := range stream.Tracks() {
		if !t.Stopped() {
			trackIDs = append(trackIDs, t.ID())
		}
	}

	h.mu.Lock()
	h.fragments[id] = onFragment
	h.stopped[id] = make(chan struct{})
	h.mu.Unlock()

	expr, err := call("startRecorder", id, trackIDs, config.MimeType, config.Timeslice.Milliseconds())
	if err != nil {
		return err
	}

	var mimeType string
	if err := h.evaluate(context.Background(), expr, &mimeType); err != nil {
		h.mu.Lock()
		delete(h.fragments, id)
		delete(h.stopped, id)
		h.mu.Unlock()
		if strings.Contains(err.Error(), "NotSupportedError") {
			return fmt.Errorf("%w: %w", media.ErrNotSupported, err)
		}
		return err
	}

	h.logger.Debug("page recorder started", zap.String("recorder", id), zap.String("mimeType", mimeType))

	return nil
}

// stopRecorder stops page recorder id and waits until its last fragment
// has been delivered.
func (h *Host) stopRecorder(id string) error {
	h.mu.Lock()
	done := h.stopped[id]
	h.mu.Unlock()

	if done == nil {
		return errors.New("page recorder not running")
	}

	expr, _ := call("stopRecorder", id)
	var found bool
	if err := h.evaluate(context.Background(), expr, &found); err != nil {
		return err
	}

	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		h.mu.Lock()
		delete(h.fragments, id)
		delete(h.stopped, id)
		h.mu.Unlock()
		return fmt.Errorf("page recorder %s did not stop in time", id)
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

// Close stops Chromium and the Xvfb server, if any.
func (h *Host) Close() {
	h.logger.Info("closing browser")

	if h.cancel != nil {
		h.cancel()
	}
	if h.allocCancel != nil {
		h.allocCancel()
	}
	if h.xvfb != nil {
		h.xvfb.Close()
	}
}

func isPermissionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "NotAllowedError") || strings.Contains(msg, "SecurityError")
}
