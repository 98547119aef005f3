package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// Launcher opens console URLs in a browser
type Launcher struct {
	command string   // configured browser command, empty for system default
	args    []string // additional arguments for the browser
	logger  *slog.Logger

	// start runs a command without waiting for it
	start func(name string, args ...string) error
}

// NewLauncher creates a new Launcher
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command: command,
		args:    args,
		logger:  logger,
		start:   startCommand,
	}
}

func startCommand(name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

// Open opens a URL in the configured browser or the system default
func (l *Launcher) Open(url string) error {
	if url == "" {
		return fmt.Errorf("no url to open")
	}

	if l.command != "" {
		args := append(append([]string{}, l.args...), url)
		l.logger.Info("opening with configured browser", "command", l.command, "url", url)
		err := l.start(l.command, args...)
		if err == nil {
			return nil
		}
		l.logger.Warn("configured browser failed, using system default", "command", l.command, "error", err)
	}

	name, args := defaultOpener(runtime.GOOS, url)
	l.logger.Info("opening with system default", "os", runtime.GOOS, "url", url)
	if err := l.start(name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

// defaultOpener returns the system URL handler for an OS
func defaultOpener(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", "", url}
	default:
		// Linux and other Unix-like systems
		return "xdg-open", []string{url}
	}
}
