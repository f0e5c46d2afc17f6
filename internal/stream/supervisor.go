package stream

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tvoe/mediaserver/internal/domain"
)

// termGrace is how long a terminated encoder gets before it is killed.
const termGrace = 3 * time.Second

// Process wraps one spawned encoder subprocess. The supervisor is the sole
// owner and the only actor allowed to terminate or reap it.
type Process struct {
	id      uuid.UUID
	args    []string
	cmd     *exec.Cmd
	output  *os.File // parent read side when output is piped, else nil
	rate    *rateScanner
	workDir string

	done chan struct{}

	waitOnce sync.Once
	waitErr  error

	mu    sync.Mutex
	ended bool
}

// ID returns the job id the process serves.
func (p *Process) ID() uuid.UUID { return p.id }

// Output returns the process's muxed output stream. Nil for segment-writing
// processes, which write to files instead.
func (p *Process) Output() *os.File { return p.output }

// Rate returns the running average encode rate reported by the encoder.
func (p *Process) Rate() float64 { return p.rate.Rate() }

// Done is closed when the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Ended reports whether the supervisor has torn the process down.
func (p *Process) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

func (p *Process) wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// StartOptions configure one process incarnation.
type StartOptions struct {
	// PipeOutput exposes the process's stdout via Process.Output. When
	// false, stdout is discarded and the process writes segment files.
	PipeOutput bool

	// WorkDir, when set, is removed recursively on teardown.
	WorkDir string
}

// Supervisor owns every live encoder process. Exactly one process exists per
// job id at any instant; starting a job that already has one replaces it.
type Supervisor struct {
	logger *zap.Logger

	mu    sync.Mutex
	procs map[uuid.UUID]*Process
}

// NewSupervisor creates a supervisor.
func NewSupervisor(logger *zap.Logger) *Supervisor {
	return &Supervisor{
		logger: logger,
		procs:  make(map[uuid.UUID]*Process),
	}
}

// Start spawns the encoder described by args, whose first element is the
// executable path. A spawn failure marks the job ended without it ever
// running and is reported upward.
func (s *Supervisor) Start(id uuid.UUID, args []string, opts StartOptions) (*Process, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command", domain.ErrProcessStartFailed)
	}

	// A respawn must fully end the previous incarnation first.
	if err := s.End(id); err != nil {
		return nil, err
	}

	cmd := exec.Command(args[0], args[1:]...)
	rate := newRateScanner()
	cmd.Stderr = rate
	cmd.Stdin = nil

	var readEnd, writeEnd *os.File
	if opts.PipeOutput {
		var err error
		readEnd, writeEnd, err = os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProcessStartFailed, err)
		}
		cmd.Stdout = writeEnd
	}

	if err := cmd.Start(); err != nil {
		if readEnd != nil {
			readEnd.Close()
			writeEnd.Close()
		}
		s.logger.Error("encoder start failed",
			zap.String("jobId", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrProcessStartFailed, err)
	}
	if writeEnd != nil {
		// The child holds its own copy of the write side.
		writeEnd.Close()
	}

	p := &Process{
		id:      id,
		args:    args,
		cmd:     cmd,
		output:  readEnd,
		rate:    rate,
		workDir: opts.WorkDir,
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.procs[id] = p
	s.mu.Unlock()

	go func() {
		err := p.wait()
		close(p.done)
		if err != nil && !p.Ended() {
			s.logger.Debug("encoder exited",
				zap.String("jobId", id.String()),
				zap.Error(err))
		}
	}()

	s.logger.Info("encoder started",
		zap.String("jobId", id.String()),
		zap.String("binary", args[0]))

	return p, nil
}

// Get returns the live process for a job id.
func (s *Supervisor) Get(id uuid.UUID) (*Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[id]
	return p, ok
}

// End tears down the process serving the given job id. It is idempotent and
// safe to invoke concurrently from multiple triggers; ending an unknown job
// is a no-op.
func (s *Supervisor) End(id uuid.UUID) error {
	s.mu.Lock()
	p := s.procs[id]
	delete(s.procs, id)
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	s.teardown(p)
	return nil
}

// Shutdown ends every live process.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	procs := make([]*Process, 0, len(s.procs))
	for _, p := range s.procs {
		procs = append(procs, p)
	}
	s.procs = make(map[uuid.UUID]*Process)
	s.mu.Unlock()

	for _, p := range procs {
		s.teardown(p)
	}
}

// teardown terminates the process if still alive, closes the owned output
// sink, and removes the working directory. The three cleanup actions are
// attempted independently; a failure in one never skips the others.
func (s *Supervisor) teardown(p *Process) {
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return
	}
	p.ended = true
	p.mu.Unlock()

	select {
	case <-p.done:
	default:
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			p.cmd.Process.Kill()
		}
		select {
		case <-p.done:
		case <-time.After(termGrace):
			p.cmd.Process.Kill()
			<-p.done
		}
	}

	if p.output != nil {
		if err := p.output.Close(); err != nil {
			s.logger.Debug("output close failed",
				zap.String("jobId", p.id.String()),
				zap.Error(err))
		}
	}

	if p.workDir != "" {
		if err := os.RemoveAll(p.workDir); err != nil {
			s.logger.Warn("workspace removal failed",
				zap.String("jobId", p.id.String()),
				zap.String("dir", p.workDir),
				zap.Error(err))
		}
	}

	s.logger.Info("encoder ended", zap.String("jobId", p.id.String()))
}
