package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/mattjoyce/cmdq/internal/history"
	"github.com/mattjoyce/cmdq/internal/job"
	"github.com/mattjoyce/cmdq/internal/log"
	"github.com/mattjoyce/cmdq/internal/queue"
	"github.com/mattjoyce/cmdq/internal/term"
)

// State is the dispatcher's observable phase, exposed for the status API.
type State string

const (
	StateWaitingForJob   State = "waiting_for_job"
	StateDispatching     State = "dispatching"
	StateWaitingForChild State = "waiting_for_child"
	StateStopped         State = "stopped"
)

// Dispatcher is the single worker. It owns each job from the moment
// queue.Remove returns it until the child process has exited and the
// record is released.
type Dispatcher struct {
	queue   *queue.Queue
	history *history.Store
	logger  *slog.Logger
	theme   term.Theme

	// Console notices and child process stdio. Overridable in tests.
	out      io.Writer
	childIn  io.Reader
	childOut io.Writer
	childErr io.Writer

	mu    sync.Mutex
	state State
}

// New creates a Dispatcher. The history store may be nil, in which case no
// audit rows are written.
func New(q *queue.Queue, h *history.Store) *Dispatcher {
	return &Dispatcher{
		queue:    q,
		history:  h,
		logger:   log.WithComponent("dispatch"),
		theme:    term.DefaultTheme(),
		out:      os.Stdout,
		childIn:  os.Stdin,
		childOut: os.Stdout,
		childErr: os.Stderr,
	}
}

// Run executes the dispatch loop until the queue reports no more work.
// This is a blocking call; run it on its own goroutine and join after
// requesting shutdown.
func (d *Dispatcher) Run() {
	d.logger.Info("dispatch loop started")
	defer d.logger.Info("dispatch loop stopped")
	defer d.setState(StateStopped)

	for {
		d.setState(StateWaitingForJob)
		j, ok := d.queue.Remove()
		if !ok {
			return
		}
		d.executeJob(context.Background(), j)
	}
}

// State returns the dispatcher's current phase.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == "" {
		return StateWaitingForJob
	}
	return d.state
}

func (d *Dispatcher) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// executeJob runs a single job as a child process and waits for it.
func (d *Dispatcher) executeJob(ctx context.Context, j *job.Job) {
	d.setState(StateDispatching)
	jobLogger := log.WithJob(j.ID).With("program", j.Program())
	jobLogger.Info("dispatching job", "command", j.Command)

	fmt.Fprintln(d.out, d.theme.Dispatch.Render(
		fmt.Sprintf("[dispatch] job %d: %s", j.ID, j.Command)))

	path, err := exec.LookPath(j.Program())
	if err != nil {
		msg := fmt.Sprintf("command not found: %s", j.Program())
		fmt.Fprintln(d.out, d.theme.Failed.Render("[dispatch] "+msg))
		jobLogger.Warn("lookup failed", "error", err)
		d.recordOutcome(ctx, j, 0, history.StatusFailed, nil, &msg)
		return
	}

	cmd := exec.Command(path, j.Args[1:]...)
	cmd.Stdin = d.childIn
	cmd.Stdout = d.childOut
	cmd.Stderr = d.childErr

	if err := cmd.Start(); err != nil {
		// Spawn failure is not fatal to the loop: report, drop the job,
		// move on. It is never requeued.
		msg := fmt.Sprintf("spawn failed: %v", err)
		fmt.Fprintln(d.out, d.theme.Failed.Render(
			fmt.Sprintf("[dispatch] job %d %s", j.ID, msg)))
		jobLogger.Error("spawn failed", "error", err)
		d.recordOutcome(ctx, j, 0, history.StatusFailed, nil, &msg)
		return
	}

	pid := cmd.Process.Pid
	rowID := d.recordStart(ctx, j, pid)

	d.setState(StateWaitingForChild)
	waitErr := cmd.Wait()

	exitCode := cmd.ProcessState.ExitCode()
	status := history.StatusSucceeded
	var lastError *string
	if waitErr != nil {
		status = history.StatusFailed
		msg := waitErr.Error()
		lastError = &msg
	}

	if status == history.StatusSucceeded {
		fmt.Fprintln(d.out, d.theme.Done.Render(
			fmt.Sprintf("[dispatch] job %d completed (pid %d, exit %d)", j.ID, pid, exitCode)))
	} else {
		fmt.Fprintln(d.out, d.theme.Failed.Render(
			fmt.Sprintf("[dispatch] job %d completed (pid %d, exit %d)", j.ID, pid, exitCode)))
	}
	jobLogger.Info("job completed", "pid", pid, "exit_code", exitCode)

	d.recordFinish(ctx, rowID, status, &exitCode, lastError)
}

// recordStart writes the running history row, if a store is attached.
func (d *Dispatcher) recordStart(ctx context.Context, j *job.Job, pid int) string {
	if d.history == nil {
		return ""
	}
	rowID, err := d.history.JobStarted(ctx, j, pid)
	if err != nil {
		d.logger.Error("failed to record job start", "job_id", j.ID, "error", err)
		return ""
	}
	return rowID
}

// recordFinish closes out a history row, if one was written.
func (d *Dispatcher) recordFinish(ctx context.Context, rowID string, status history.Status, exitCode *int, lastError *string) {
	if d.history == nil || rowID == "" {
		return
	}
	if err := d.history.JobFinished(ctx, rowID, status, exitCode, lastError); err != nil {
		d.logger.Error("failed to record job completion", "row_id", rowID, "error", err)
	}
}

// recordOutcome records a job that terminated without a tracked child.
func (d *Dispatcher) recordOutcome(ctx context.Context, j *job.Job, pid int, status history.Status, exitCode *int, lastError *string) {
	rowID := d.recordStart(ctx, j, pid)
	d.recordFinish(ctx, rowID, status, exitCode, lastError)
}
