package sysprim

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ErrNilLocker is returned if a mutex task is scheduled without a lock.
var ErrNilLocker = errors.New("nil locker")

// TaskStatus is the completion status of a MutexTask.
type TaskStatus int32

const (
	// TaskPending means the task's goroutine has not started working yet.
	TaskPending TaskStatus = iota
	TaskSuccess
	TaskFailure
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskSuccess:
		return "success"
	case TaskFailure:
		return "failure"
	default:
		return "unknown"
	}
}

var lastTaskID uint64

// MutexTask is a unit of work that waits, acquires a lock, waits while holding
// it, then releases it. The task does not own its Locker.
type MutexTask struct {
	ID            uint64
	WaitToObtain  time.Duration
	WaitToRelease time.Duration

	locker Locker
	j      Journaler

	status int32 // TaskStatus
	done   chan struct{}
}

// ScheduleMutexTask starts a new MutexTask on its own goroutine and returns
// it. ErrNilLocker is returned and nothing is started if locker is nil.
// Negative waits are treated as no wait.
//
// The caller must Join the returned task before relying on its status.
func ScheduleMutexTask(
	locker Locker, waitToObtain, waitToRelease time.Duration, j Journaler) (*MutexTask, error) {

	if locker == nil {
		return nil, ErrNilLocker
	}

	task := newMutexTask(locker, waitToObtain, waitToRelease, j)

	task.j.Write(&EventTaskScheduled{
		Task:            task.ID,
		WaitToObtainMs:  task.WaitToObtain.Milliseconds(),
		WaitToReleaseMs: task.WaitToRelease.Milliseconds(),
	})

	go task.run()

	return task, nil
}

func newMutexTask(locker Locker, waitToObtain, waitToRelease time.Duration, j Journaler) *MutexTask {
	return &MutexTask{
		ID:            atomic.AddUint64(&lastTaskID, 1),
		WaitToObtain:  waitToObtain,
		WaitToRelease: waitToRelease,
		locker:        locker,
		j:             orDiscard(j),
		status:        int32(TaskPending),
		done:          make(chan struct{}),
	}
}

// Done returns a channel that is closed once the task's goroutine has
// terminated.
func (task *MutexTask) Done() <-chan struct{} {
	return task.done
}

// Join blocks until the task's goroutine has terminated and returns the final
// status.
func (task *MutexTask) Join() TaskStatus {
	<-task.done
	return task.Status()
}

// Status returns the currently recorded status. It is only final after Join
// has returned.
func (task *MutexTask) Status() TaskStatus {
	return TaskStatus(atomic.LoadInt32(&task.status))
}

func (task *MutexTask) setStatus(status TaskStatus) {
	atomic.StoreInt32(&task.status, int32(status))
}

func (task *MutexTask) run() {
	defer close(task.done)

	err := task.do()

	ev := EventTaskFinished{
		Task:   task.ID,
		Status: task.Status().String(),
	}
	if err != nil {
		ev.Error = err.Error()
	}

	task.j.Write(&ev)
}

func (task *MutexTask) do() error {
	// Anything that returns early from here on is a failure.
	task.setStatus(TaskFailure)

	if task.locker == nil {
		return ErrNilLocker
	}

	if task.WaitToObtain > 0 {
		time.Sleep(task.WaitToObtain)
	}

	if err := task.locker.Lock(); err != nil {
		return errors.Wrap(err, "failed to lock")
	}

	task.j.Write(&EventTaskLocked{Task: task.ID})

	if task.WaitToRelease > 0 {
		time.Sleep(task.WaitToRelease)
	}

	if err := task.locker.Unlock(); err != nil {
		return errors.Wrap(err, "failed to unlock")
	}

	task.setStatus(TaskSuccess)
	return nil
}
