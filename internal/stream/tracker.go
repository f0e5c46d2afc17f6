package stream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tvoe/mediaserver/internal/domain"
	"github.com/tvoe/mediaserver/internal/ffmpeg"
)

// CommandFunc builds the encoder argument vector for a session restarted at
// the given segment number. A nil return aborts the request.
type CommandFunc func(segment int) []string

type session struct {
	mu        sync.Mutex
	workspace *Workspace
	build     CommandFunc
	ext       string

	lastRequested int
	procOffset    int
}

// SegmentTracker extends the supervisor for adaptive sessions. It tracks the
// last-requested segment number per job and replaces the encoder process when
// the playback position jumps outside what the current incarnation produces.
type SegmentTracker struct {
	logger      *zap.Logger
	supervisor  *Supervisor
	waitTimeout time.Duration
	onRespawn   func(jobID uuid.UUID)

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewSegmentTracker creates a tracker on top of the supervisor. onRespawn,
// when non-nil, is invoked once per encoder replacement.
func NewSegmentTracker(logger *zap.Logger, sup *Supervisor, waitTimeout time.Duration, onRespawn func(jobID uuid.UUID)) *SegmentTracker {
	return &SegmentTracker{
		logger:      logger,
		supervisor:  sup,
		waitTimeout: waitTimeout,
		onRespawn:   onRespawn,
		sessions:    make(map[uuid.UUID]*session),
	}
}

// Register creates the tracking state for an adaptive job. ext is the segment
// file extension including the dot.
func (t *SegmentTracker) Register(jobID uuid.UUID, ws *Workspace, ext string, build CommandFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[jobID] = &session{
		workspace:     ws,
		build:         build,
		ext:           ext,
		lastRequested: -1,
	}
}

// End tears down the session and its encoder. Unknown ids are a no-op.
func (t *SegmentTracker) End(jobID uuid.UUID) error {
	t.mu.Lock()
	delete(t.sessions, jobID)
	t.mu.Unlock()
	return t.supervisor.End(jobID)
}

// LastRequested returns the most recent segment number served for the job,
// -1 when none has been requested yet.
func (t *SegmentTracker) LastRequested(jobID uuid.UUID) (int, error) {
	t.mu.Lock()
	s := t.sessions[jobID]
	t.mu.Unlock()
	if s == nil {
		return 0, domain.ErrJobNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequested, nil
}

// Request returns the on-disk path of segment n, spawning or replacing the
// encoder as needed and blocking until the segment file is complete. Requests
// for the same job are serialized; distinct jobs never block each other.
func (t *SegmentTracker) Request(ctx context.Context, jobID uuid.UUID, n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("%w: negative segment %d", domain.ErrSegmentUnavailable, n)
	}

	t.mu.Lock()
	s := t.sessions[jobID]
	t.mu.Unlock()
	if s == nil {
		return "", domain.ErrJobNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	proc, live := t.supervisor.Get(jobID)
	if live {
		select {
		case <-proc.Done():
			// The encoder finished the session; files it produced remain
			// servable without a respawn.
		default:
		}
	}

	// A backward jump, or a forward jump past the next expected segment,
	// forces a replacement starting at the requested offset.
	jump := n < s.procOffset || (s.lastRequested >= 0 && n > s.lastRequested+1)
	if !live || jump {
		segPath := s.segmentPath(n)
		if !jump && fileComplete(segPath) {
			// No encoder but the segment already exists from the prior
			// incarnation's free run.
			s.lastRequested = n
			return segPath, nil
		}

		var err error
		proc, err = t.respawn(jobID, s, n)
		if err != nil {
			return "", err
		}
	}

	s.lastRequested = n
	path := s.segmentPath(n)
	if err := t.waitForSegment(ctx, s, proc, n); err != nil {
		return "", err
	}
	return path, nil
}

func (s *session) segmentPath(n int) string {
	name := fmt.Sprintf(ffmpeg.SegmentFilePattern+s.ext, n)
	return filepath.Join(s.workspace.Dir(), name)
}

func (t *SegmentTracker) respawn(jobID uuid.UUID, s *session, n int) (*Process, error) {
	if err := t.supervisor.End(jobID); err != nil {
		return nil, err
	}
	if err := s.workspace.Prepare(); err != nil {
		return nil, err
	}

	args := s.build(n)
	if args == nil {
		return nil, fmt.Errorf("%w: no command for segment %d", domain.ErrSegmentUnavailable, n)
	}

	proc, err := t.supervisor.Start(jobID, args, StartOptions{
		WorkDir: s.workspace.Dir(),
	})
	if err != nil {
		return nil, err
	}
	s.procOffset = n

	t.logger.Info("segment session respawned",
		zap.String("jobId", jobID.String()),
		zap.Int("segment", n))
	if t.onRespawn != nil {
		t.onRespawn(jobID)
	}
	return proc, nil
}

// waitForSegment blocks until segment n is fully written. The encoder writes
// segments in order, so n is complete once the successor file appears or the
// process has exited with n present on disk.
func (t *SegmentTracker) waitForSegment(ctx context.Context, s *session, proc *Process, n int) error {
	current := s.segmentPath(n)
	next := s.segmentPath(n + 1)

	ready := func() (bool, error) {
		if fileComplete(next) {
			if !fileComplete(current) {
				return false, fmt.Errorf("%w: segment %d missing", domain.ErrSegmentUnavailable, n)
			}
			return true, nil
		}
		if proc == nil {
			return fileComplete(current), nil
		}
		select {
		case <-proc.Done():
			if !fileComplete(current) {
				return false, fmt.Errorf("%w: segment %d missing", domain.ErrSegmentUnavailable, n)
			}
			return true, nil
		default:
			return false, nil
		}
	}

	if ok, err := ready(); err != nil || ok {
		return err
	}
	if proc == nil {
		return fmt.Errorf("%w: segment %d missing", domain.ErrSegmentUnavailable, n)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(s.workspace.Dir()); err != nil {
		return fmt.Errorf("failed to watch workspace: %w", err)
	}

	// Re-check after registration: the file may have landed in between.
	if ok, err := ready(); err != nil || ok {
		return err
	}

	timeout := time.NewTimer(t.waitTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return fmt.Errorf("%w: timed out waiting for segment %d", domain.ErrSegmentUnavailable, n)
		case <-proc.Done():
			if fileComplete(current) {
				return nil
			}
			return fmt.Errorf("%w: segment %d missing", domain.ErrSegmentUnavailable, n)
		case event, open := <-watcher.Events:
			if !open {
				return fmt.Errorf("%w: watcher closed", domain.ErrSegmentUnavailable)
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if ok, err := ready(); err != nil || ok {
				return err
			}
		case err, open := <-watcher.Errors:
			if !open {
				return fmt.Errorf("%w: watcher closed", domain.ErrSegmentUnavailable)
			}
			t.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

func fileComplete(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
