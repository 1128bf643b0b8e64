package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// readyPattern matches the companion's startup line and captures the
// port the feed listens on, e.g. "Server started on ws://127.0.0.1:24050".
var readyPattern = regexp.MustCompile(`(?i)server started.*:(\d{1,5})`)

// defaultStopGrace is how long Stop waits after SIGTERM before killing.
const defaultStopGrace = 5 * time.Second

const maxLineBytes = 1 << 20

// Supervisor launches and watches one companion process at a time.
//
// Callback fields must be assigned before Start and not changed
// afterwards:
//
//   - OnReady: the readiness line appeared on stdout; fires at most once
//     per process start, on its own goroutine so a slow handler cannot
//     stall stdout scraping
//   - OnExit: the process terminated without Stop being asked for it
//
// Start, Stop, Restart and Running are safe for concurrent use.
type Supervisor struct {
	path   string
	args   []string
	logger *slog.Logger

	OnReady func(port int)
	OnExit  func(err error)

	// grace is the SIGTERM-to-kill window; tests shorten it.
	grace time.Duration

	mu       sync.Mutex
	cmd      *exec.Cmd
	done     chan struct{}
	stopping bool
}

// New creates a [Supervisor] for the given executable and arguments.
// Nothing is launched until [Supervisor.Start].
func New(path string, args []string, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		path:   path,
		args:   args,
		logger: logger,
		grace:  defaultStopGrace,
	}
}

// Start launches the companion process and begins scraping its output.
//
// Start fails when a process is already running or when the executable
// cannot be spawned. It does not wait for readiness; that is what
// OnReady is for.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return errors.New("companion process already running")
	}

	cmd := exec.Command(s.path, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.path, err)
	}

	done := make(chan struct{})
	s.cmd = cmd
	s.done = done
	s.stopping = false

	// pipes must be drained before cmd.Wait may run
	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		s.scanStdout(stdout)
	}()
	go func() {
		defer pipes.Done()
		s.scanStderr(stderr)
	}()

	go func() {
		defer close(done)
		pipes.Wait()
		err := cmd.Wait()

		s.mu.Lock()
		stopping := s.stopping
		if s.cmd == cmd {
			s.cmd = nil
			s.done = nil
		}
		s.mu.Unlock()

		if stopping {
			s.logger.Info("companion process stopped", "path", s.path)
			return
		}
		s.logger.Warn("companion process exited unexpectedly",
			"path", s.path, "error", err)
		if s.OnExit != nil {
			s.OnExit(err)
		}
	}()

	s.logger.Info("companion process started",
		"path", s.path, "pid", cmd.Process.Pid)
	return nil
}

// Stop terminates the running process: SIGTERM first, then a kill when
// the grace window runs out. It blocks until the process is gone and is
// a no-op when nothing runs. OnExit does not fire for a stop.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd := s.cmd
	done := s.done
	if cmd == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	s.mu.Unlock()

	// SIGTERM is not deliverable everywhere; fall back to an outright kill
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = cmd.Process.Kill()
	}

	select {
	case <-done:
	case <-time.After(s.grace):
		s.logger.Warn("companion ignored the stop request, killing",
			"path", s.path, "pid", cmd.Process.Pid)
		_ = cmd.Process.Kill()
		<-done
	}
	return nil
}

// Restart stops any running process and starts a fresh one.
func (s *Supervisor) Restart() error {
	if err := s.Stop(); err != nil {
		return err
	}
	return s.Start()
}

// Running reports whether a companion process is currently alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// scanStdout watches the companion's stdout for the readiness line. All
// output is logged at debug for troubleshooting.
func (s *Supervisor) scanStdout(r io.Reader) {
	ready := false
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		s.logger.Debug("companion stdout", "line", line)
		if ready {
			continue
		}
		m := readyPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		port, err := strconv.Atoi(m[1])
		if err != nil || port < 1 || port > 65535 {
			s.logger.Warn("companion readiness line has a bad port", "line", line)
			continue
		}
		ready = true
		s.logger.Info("companion ready", "port", port)
		if s.OnReady != nil {
			go s.OnReady(port)
		}
	}
}

func (s *Supervisor) scanStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		s.logger.Debug("companion stderr", "line", sc.Text())
	}
}
