package sysprim

import (
	"os"

	"git.unix.lgbt/diamondburned/sysprim/sysprim/exec"
	"github.com/pkg/errors"
)

// DefaultShell is the shell used to run command lines. It is the same shell
// system(3) uses.
var DefaultShell = "/bin/sh"

var (
	// ErrEmptyCommand is returned if a shell command line is empty.
	ErrEmptyCommand = errors.New("empty command")
	// ErrEmptyArgv is returned if a program is run with no arguments at all.
	ErrEmptyArgv = errors.New("empty argv")
	// ErrEmptyOutputPath is returned if a redirected program is given no
	// output path.
	ErrEmptyOutputPath = errors.New("empty output path")
)

// Executor runs commands synchronously. Each call is independent; an Executor
// only holds configuration and is safe to use concurrently.
type Executor struct {
	ShellPath string

	j         Journaler
	startProc func(argv []string, stdout *os.File) (exec.Process, error)
}

// NewExecutor creates a new executor that reports into the given journaler.
// A nil journaler discards all events.
func NewExecutor(j Journaler) *Executor {
	return &Executor{
		ShellPath: DefaultShell,
		j:         orDiscard(j),
		startProc: exec.StartProcess,
	}
}

// RunShell runs the command line through the shell. It returns true only if
// the command exited normally with status 0.
func (e *Executor) RunShell(command string) bool {
	status, err := e.ExecShell(command)
	return err == nil && status.Success()
}

// RunProgram runs argv, where argv[0] is the path to the executable. It
// returns true only if the program exited normally with status 0.
func (e *Executor) RunProgram(argv []string) bool {
	status, err := e.Exec(argv)
	return err == nil && status.Success()
}

// RunProgramRedirected is like RunProgram, except the program's standard
// output is written into the file at outputPath, which is created or
// truncated.
func (e *Executor) RunProgramRedirected(argv []string, outputPath string) bool {
	status, err := e.ExecRedirected(argv, outputPath)
	return err == nil && status.Success()
}

// ExecShell runs the command line using ShellPath -c.
func (e *Executor) ExecShell(command string) (exec.ExitStatus, error) {
	if command == "" {
		return exec.ExitStatus{}, ErrEmptyCommand
	}

	shell := e.ShellPath
	if shell == "" {
		shell = DefaultShell
	}

	return e.exec([]string{shell, "-c", command}, "")
}

// Exec runs argv and waits for it to terminate. An error is only returned if
// argv is empty, if the system refused to create a new process or if waiting
// for it failed. An executable that cannot be run is reported as an exit
// status of exec.CodeExecFailed.
func (e *Executor) Exec(argv []string) (exec.ExitStatus, error) {
	return e.exec(argv, "")
}

// ExecRedirected is like Exec, except the program's standard output is the
// file at outputPath, opened write-only, created if absent and truncated if
// present with mode 0644. Failing to open the file is reported the same way
// as failing to run the executable.
func (e *Executor) ExecRedirected(argv []string, outputPath string) (exec.ExitStatus, error) {
	if outputPath == "" {
		return exec.ExitStatus{}, ErrEmptyOutputPath
	}

	return e.exec(argv, outputPath)
}

func (e *Executor) exec(argv []string, outputPath string) (exec.ExitStatus, error) {
	if len(argv) == 0 {
		return exec.ExitStatus{}, ErrEmptyArgv
	}

	var stdout *os.File

	if outputPath != "" {
		f, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			e.j.Write(&EventCommandSpawnError{
				Argv:   argv,
				Reason: errors.Wrap(err, "failed to open output file").Error(),
			})
			return e.exited(argv, exec.ExecFailed()), nil
		}
		// The child has its own copy as stdout once it is started.
		defer f.Close()

		stdout = f
	}

	proc, err := e.startProc(argv, stdout)
	if err != nil {
		e.j.Write(&EventCommandSpawnError{
			Argv:   argv,
			Reason: err.Error(),
		})

		if exec.Refused(err) {
			return exec.ExitStatus{Code: -1}, errors.Wrap(err, "failed to spawn process")
		}

		return e.exited(argv, exec.ExecFailed()), nil
	}

	e.j.Write(&EventCommandSpawned{
		Argv:   argv,
		PID:    proc.PID(),
		Stdout: outputPath,
	})

	status, err := proc.Wait()
	if err != nil {
		e.j.Write(&EventWarning{
			Component: "executor",
			Error:     err.Error(),
		})
		return status, err
	}

	return e.exited(argv, status), nil
}

// exited reports the exit status to the journal and returns it.
func (e *Executor) exited(argv []string, status exec.ExitStatus) exec.ExitStatus {
	e.j.Write(&EventCommandExited{
		PID:      status.PID,
		Argv:     argv,
		ExitCode: status.Code,
		Signal:   status.SignalName(),
	})

	return status
}
