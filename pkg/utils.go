package pkg

import (
	"os"
	"os/signal"
	"syscall"
)

// HandleSignal returns a channel that receives SIGINT, SIGTERM and SIGHUP.
func HandleSignal() chan os.Signal {
	signalChan := make(chan os.Signal, 20)
	signal.Notify(
		signalChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)

	return signalChan
}

// CreateDirectory creates path and any missing parents.
func CreateDirectory(path string) error {
	return os.MkdirAll(path, 0o755)
}
