package shell

import (
	"fmt"
	"strings"
)

// Job is one ordered batch of commands executed together.
// Stdout and Stderr are optional; when set, lines reach them while the job runs.
type Job struct {
	Commands []string
	Stdout   Sink
	Stderr   Sink
}

// NewJob creates a job from commands.
func NewJob(cmds ...string) Job {
	return Job{Commands: append([]string(nil), cmds...)}
}

// To returns a copy of the job streaming into the given sinks.
func (j Job) To(stdout, stderr Sink) Job {
	j.Stdout = stdout
	j.Stderr = stderr
	return j
}

// Result is the outcome of a job.
type Result struct {
	// Code is the exit status of the last command, -1 when it is unknown.
	Code   int
	Stdout []string
	Stderr []string
	// Cause is set when the job could not run to completion on its session.
	Cause error
}

// IsSuccess reports whether the last command exited with status 0.
func (r Result) IsSuccess() bool {
	return r.Cause == nil && r.Code == 0
}

// Output returns stdout joined by newlines.
func (r Result) Output() string {
	return strings.Join(r.Stdout, "\n")
}

// LastLine returns the last stdout line, or "" when there is none.
func (r Result) LastLine() string {
	if len(r.Stdout) == 0 {
		return ""
	}
	return r.Stdout[len(r.Stdout)-1]
}

// String summarizes the result for logs.
func (r Result) String() string {
	if r.Cause != nil {
		return fmt.Sprintf("code=%d cause=%v", r.Code, r.Cause)
	}
	return fmt.Sprintf("code=%d out=%d err=%d", r.Code, len(r.Stdout), len(r.Stderr))
}

func failed(cause error) Result {
	return Result{Code: -1, Cause: cause}
}

// script renders the job for the shell. The trailer echoes marker on both
// streams; on stdout it carries the exit status of the last command.
func script(cmds []string, marker string) string {
	var b strings.Builder
	for _, c := range cmds {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "__apcore_rc=$?\necho %s $__apcore_rc\necho %s >&2\n", marker, marker)
	return b.String()
}

// Quote returns s quoted for a POSIX shell.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !isSafeRune(r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("_@%+=:,./-", r)
}
