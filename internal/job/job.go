// Package job defines the unit of work handed from intake to dispatch.
package job

import (
	"strings"
	"time"
)

const (
	// MaxCommandLen is the byte limit for raw command text. Longer input is
	// truncated before tokenization.
	MaxCommandLen = 100

	// MaxArgs is the maximum argument vector length. Tokens past the limit
	// are silently dropped.
	MaxArgs = 9

	// FirstID is the identifier assigned to the first job of a session.
	FirstID = 100
)

// Job is one submitted command line. A Job has exactly one owner at any
// time: intake until Insert, the queue while buffered, dispatch after
// Remove. Nothing reads or mutates a Job after handing it off.
type Job struct {
	ID          int
	Command     string
	Args        []string
	SubmittedAt time.Time
}

// New builds a Job from a raw command line. The line is truncated to
// MaxCommandLen bytes, then split on whitespace into at most MaxArgs
// tokens. Returns nil if the line holds no tokens.
func New(id int, line string) *Job {
	if len(line) > MaxCommandLen {
		line = line[:MaxCommandLen]
	}

	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	if len(args) > MaxArgs {
		args = args[:MaxArgs]
	}

	return &Job{
		ID:          id,
		Command:     line,
		Args:        args,
		SubmittedAt: time.Now().UTC(),
	}
}

// Program returns the executable name, argument 0 of the vector.
func (j *Job) Program() string {
	return j.Args[0]
}
