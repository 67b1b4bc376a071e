// Package intake is the producer side of the session: it reads command
// lines from the interactive console, builds jobs, and hands them to the
// bounded queue, blocking when the queue is full.
package intake

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mattjoyce/cmdq/internal/job"
	"github.com/mattjoyce/cmdq/internal/log"
	"github.com/mattjoyce/cmdq/internal/queue"
	"github.com/mattjoyce/cmdq/internal/term"
)

// ExitCommand requests shutdown. Exact match, case-sensitive, no arguments.
const ExitCommand = "exit"

const prompt = "cmdq> "

// Intake owns each job it builds until the queue accepts it.
type Intake struct {
	queue  *queue.Queue
	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
	theme  term.Theme
	nextID int
}

func New(q *queue.Queue, in io.Reader, out io.Writer) *Intake {
	return &Intake{
		queue:  q,
		in:     bufio.NewReader(in),
		out:    out,
		logger: log.WithComponent("intake"),
		theme:  term.DefaultTheme(),
		nextID: job.FirstID,
	}
}

// Run reads lines until the exit command or EOF, then requests shutdown
// and returns. Submission is blocking: a full queue is backpressure, and
// the prompt does not come back until the job is stored.
func (i *Intake) Run() {
	i.printBanner()

	for {
		fmt.Fprint(i.out, i.theme.Prompt.Render(prompt))

		line, ok := i.readLine()
		if !ok {
			// EOF is equivalent to the exit command.
			fmt.Fprintln(i.out)
			i.logger.Debug("input closed, requesting shutdown")
			i.queue.RequestShutdown()
			return
		}

		if line == ExitCommand {
			i.logger.Debug("exit command, requesting shutdown")
			i.queue.RequestShutdown()
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		j := job.New(i.nextID, line)
		if j == nil {
			continue
		}
		i.nextID++

		if i.queue.Depth() == i.queue.Capacity() {
			fmt.Fprintln(i.out, i.theme.Warn.Render("[intake] queue full, waiting..."))
		}
		if !i.queue.Insert(j) {
			// Shutdown raced the submission; the job never entered the queue.
			fmt.Fprintln(i.out, i.theme.Warn.Render(
				fmt.Sprintf("[intake] shutting down, job %d dropped", j.ID)))
			return
		}

		fmt.Fprintln(i.out, i.theme.Queued.Render(
			fmt.Sprintf("[intake] job %d queued: %s", j.ID, j.Command)))
		i.logger.Debug("job queued", "job_id", j.ID, "args", len(j.Args))
	}
}

// readLine returns the next input line with its terminator stripped. Lines
// longer than the read buffer are truncated rather than failed: the head of
// the line becomes the submission and the remainder is discarded, so an
// overlong paste never ends the session. ok is false once input is exhausted.
func (i *Intake) readLine() (string, bool) {
	var line []byte
	for {
		chunk, isPrefix, err := i.in.ReadLine()
		if len(line) < job.MaxCommandLen {
			line = append(line, chunk...)
		}
		if err != nil {
			if len(line) > 0 {
				return string(line), true
			}
			return "", false
		}
		if !isPrefix {
			return string(line), true
		}
	}
}

func (i *Intake) printBanner() {
	frame := i.theme.Banner.Frame.Render(strings.Repeat("=", 50))
	fmt.Fprintln(i.out, frame)
	fmt.Fprintln(i.out, i.theme.Banner.Title.Render("  cmdq — serial command dispatcher"))
	fmt.Fprintln(i.out, frame)
	fmt.Fprintf(i.out, "Type commands (e.g. 'ls', 'date', 'pwd'). Type %q to quit.\n\n", ExitCommand)
}
