package exec

import (
	"syscall"
	"time"
)

type fakeProcess struct {
	pid    int
	delay  time.Duration
	status ExitStatus
	err    error
}

// NewFakeProcess creates a process that only idles for the given delay before
// terminating with the given code, or with the given signal if it is not 0.
// It is used for testing.
func NewFakeProcess(pid int, delay time.Duration, code int, sig syscall.Signal) Process {
	status := ExitStatus{PID: pid, Code: code}
	if sig != 0 {
		status.Code = -1
		status.Signal = sig
	}

	return &fakeProcess{
		pid:    pid,
		delay:  delay,
		status: status,
	}
}

// NewFailingWaitProcess creates a process whose Wait fails with the given
// error. It is used for testing.
func NewFailingWaitProcess(pid int, err error) Process {
	return &fakeProcess{
		pid:    pid,
		status: ExitStatus{PID: pid, Code: -1},
		err:    err,
	}
}

func (fake *fakeProcess) PID() int { return fake.pid }

func (fake *fakeProcess) Wait() (ExitStatus, error) {
	if fake.delay > 0 {
		time.Sleep(fake.delay)
	}
	return fake.status, fake.err
}
