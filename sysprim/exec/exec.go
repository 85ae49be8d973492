// Package exec provides an abstraction around package os' Process
// implementation that reports exit statuses the way waitpid does, for easier
// testing.
package exec

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// CodeExecFailed is the exit code reported for a child that could not run its
// executable, matching what a shell reports for a command it cannot execute.
const CodeExecFailed = 127

// Process describes a started command process.
type Process interface {
	PID() int
	// Wait blocks until the process terminates. It must only be called once.
	Wait() (ExitStatus, error)
}

// ExitStatus is a process' exit status.
type ExitStatus struct {
	PID    int
	Code   int            // -1 if signaled
	Signal syscall.Signal // 0 if exited normally
}

// ExecFailed returns the status of a child that never got to run its
// executable.
func ExecFailed() ExitStatus {
	return ExitStatus{Code: CodeExecFailed}
}

// Success returns true if the process exited normally with status 0.
func (s ExitStatus) Success() bool {
	return s.Signal == 0 && s.Code == 0
}

// SignalName returns the name of the terminating signal, or an empty string if
// the process exited normally.
func (s ExitStatus) SignalName() string {
	if s.Signal == 0 {
		return ""
	}
	return unix.SignalName(s.Signal)
}

// Refused reports whether a StartProcess error means the system refused to
// create a new process at all, as opposed to the executable failing to run
// inside the child.
func Refused(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ENOMEM)
}

type process struct {
	*os.Process
	pid int // Release resets Process.Pid
}

var _ Process = process{}

// StartProcess creates a new command process on the system. argv[0] is used
// as the executable path as-is; no PATH lookup is done. The child inherits the
// environment, the working directory, stdin and stderr. If stdout is nil, the
// caller's stdout is inherited as well.
func StartProcess(argv []string, stdout *os.File) (Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty argv")
	}

	if stdout == nil {
		stdout = os.Stdout
	}

	p, err := os.StartProcess(argv[0], argv, &os.ProcAttr{
		Files: []*os.File{os.Stdin, stdout, os.Stderr},
	})
	if err != nil {
		return nil, err
	}

	return process{p, p.Pid}, nil
}

func (proc process) PID() int {
	return proc.pid
}

// Wait reaps the process with wait4(2), retrying on EINTR.
func (proc process) Wait() (ExitStatus, error) {
	defer proc.Release()

	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(proc.pid, &ws, 0, nil)
		if err == nil {
			break
		}
		if err == unix.EINTR {
			continue
		}
		return ExitStatus{PID: proc.pid, Code: -1}, errors.Wrap(err, "failed to wait for process")
	}

	return waitStatus(proc.pid, ws), nil
}

func waitStatus(pid int, ws unix.WaitStatus) ExitStatus {
	status := ExitStatus{PID: pid, Code: -1}

	switch {
	case ws.Exited():
		status.Code = ws.ExitStatus()
	case ws.Signaled():
		status.Signal = ws.Signal()
	case ws.Stopped():
		status.Signal = ws.StopSignal()
	}

	return status
}
