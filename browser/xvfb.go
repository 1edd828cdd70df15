package browser

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

type XvfbOptions struct {
	Display string
	Width   int
	Height  int
	Depth   int
	Logger  *zap.Logger
}

// Xvfb is a virtual X server for running Chromium headful.
type Xvfb struct {
	opts XvfbOptions

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewXvfb(opts XvfbOptions) *Xvfb {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Xvfb{opts: opts}
}

// Args returns the Xvfb command line.
func (x *Xvfb) Args() []string {
	dims := fmt.Sprintf("%dx%dx%d", x.opts.Width, x.opts.Height, x.opts.Depth)
	return []string{x.opts.Display, "-screen", "0", dims, "-ac", "-nolisten", "tcp"}
}

// Launch starts the Xvfb server with the specified display.
func (x *Xvfb) Launch() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.cmd != nil {
		x.opts.Logger.Info("Xvfb server is already running")
		return nil
	}

	x.opts.Logger.Info("starting Xvfb server", zap.String("display", x.opts.Display))

	cmd := exec.Command("Xvfb", x.Args()...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start Xvfb: %w", err)
	}
	x.cmd = cmd
	return nil
}

// Close stops the Xvfb server.
func (x *Xvfb) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.cmd == nil {
		return
	}

	if err := x.cmd.Process.Signal(os.Interrupt); err != nil {
		x.opts.Logger.Warn("failed to stop Xvfb server", zap.Error(err))
	}
	go x.cmd.Wait()

	x.cmd = nil
}
