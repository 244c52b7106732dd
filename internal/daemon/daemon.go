package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc"
)

// RunFunc re-runs the pipeline's build stages. It is invoked serially:
// the daemon never starts a new run while one is in flight.
type RunFunc func(ctx context.Context) error

// Config contains daemon configuration.
type Config struct {
	// SocketPath is the unix socket the status server listens on.
	SocketPath string
	// Root is the pipeline root directory to watch.
	Root string
	// Version is the daemon version.
	Version string
}

// DefaultConfig returns default daemon configuration.
func DefaultConfig(root string) *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		SocketPath: filepath.Join(homeDir, ".crossship", "daemon.sock"),
		Root:       root,
		Version:    "1.0.0",
	}
}

// Daemon watches the pipeline root and re-runs the build stages on change.
// A gRPC server on a unix socket exposes status to local clients.
type Daemon struct {
	config    *Config
	run       RunFunc
	server    *grpc.Server
	listener  net.Listener
	watcher   *Watcher
	startTime time.Time

	runs     int
	lastErr  error
	running  bool
	statusMu sync.RWMutex

	done chan struct{}
	mu   sync.Mutex
}

// New creates a new daemon instance.
func New(config *Config, run RunFunc) *Daemon {
	return &Daemon{
		config: config,
		run:    run,
		done:   make(chan struct{}),
	}
}

// Start starts the status server and the file watcher, then triggers an
// initial run.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	socketDir := filepath.Dir(d.config.SocketPath)
	if err := os.MkdirAll(socketDir, 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	if _, err := os.Stat(d.config.SocketPath); err == nil {
		if err := os.Remove(d.config.SocketPath); err != nil {
			return fmt.Errorf("failed to remove existing socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", d.config.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	d.listener = listener

	d.server = grpc.NewServer()
	d.startTime = time.Now()

	go func() {
		if err := d.server.Serve(listener); err != nil {
			// Server may have been stopped intentionally.
			fmt.Fprintf(os.Stderr, "status server error: %v\n", err)
		}
	}()

	watcher, err := NewWatcher(DefaultWatcherConfig(d.config.Root))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	d.watcher = watcher

	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	go d.loop(ctx)
	return nil
}

// Stop stops the daemon.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	close(d.done)

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.server != nil {
		d.server.GracefulStop()
	}
	if d.listener != nil {
		d.listener.Close()
	}
	os.Remove(d.config.SocketPath)

	return nil
}

// loop runs the pipeline once, then re-runs it on every change event.
func (d *Daemon) loop(ctx context.Context) {
	d.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case event := <-d.watcher.Events():
			fmt.Printf("🔁 %s changed, re-running pipeline...\n", event.Path)
			d.runOnce(ctx)
		case err := <-d.watcher.Errors():
			fmt.Fprintf(os.Stderr, "⚠️  watch error: %v\n", err)
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) {
	d.statusMu.Lock()
	d.running = true
	d.statusMu.Unlock()

	err := d.run(ctx)

	d.statusMu.Lock()
	d.runs++
	d.lastErr = err
	d.running = false
	d.statusMu.Unlock()

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Run failed: %v\n", err)
	}
}

// StatusInfo contains daemon status information.
type StatusInfo struct {
	Running        bool
	RunInProgress  bool
	Version        string
	UptimeSeconds  int64
	Root           string
	Runs           int
	LastRunFailed  bool
	ActiveWatchers int
}

// Status returns the daemon status.
func (d *Daemon) Status() *StatusInfo {
	d.statusMu.RLock()
	defer d.statusMu.RUnlock()

	activeWatchers := 0
	if d.watcher != nil && d.watcher.IsRunning() {
		activeWatchers = 1
	}

	return &StatusInfo{
		Running:        d.server != nil,
		RunInProgress:  d.running,
		Version:        d.config.Version,
		UptimeSeconds:  int64(time.Since(d.startTime).Seconds()),
		Root:           d.config.Root,
		Runs:           d.runs,
		LastRunFailed:  d.lastErr != nil,
		ActiveWatchers: activeWatchers,
	}
}

// SocketPath returns the socket path for connecting to this daemon.
func (d *Daemon) SocketPath() string {
	return d.config.SocketPath
}

// Client creates a gRPC client connected to this daemon.
func (d *Daemon) Client() (*grpc.ClientConn, error) {
	return grpc.Dial(
		"unix://"+d.config.SocketPath,
		grpc.WithInsecure(),
	)
}
