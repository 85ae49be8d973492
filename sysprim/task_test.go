package sysprim

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
)

// countingLocker wraps a Locker and records the largest number of holders
// observed at once.
type countingLocker struct {
	Locker
	holders int32
	max     int32
}

func (l *countingLocker) Lock() error {
	if err := l.Locker.Lock(); err != nil {
		return err
	}

	n := atomic.AddInt32(&l.holders, 1)
	for {
		max := atomic.LoadInt32(&l.max)
		if n <= max || atomic.CompareAndSwapInt32(&l.max, max, n) {
			break
		}
	}

	return nil
}

func (l *countingLocker) Unlock() error {
	atomic.AddInt32(&l.holders, -1)
	return l.Locker.Unlock()
}

type failingLocker struct {
	lockErr   error
	unlockErr error
}

func (l failingLocker) Lock() error   { return l.lockErr }
func (l failingLocker) Unlock() error { return l.unlockErr }

func TestMutexTask(t *testing.T) {
	t.Run("no wait", func(t *testing.T) {
		j := mockJournal{}

		var mu sync.Mutex

		task, err := ScheduleMutexTask(SyncLocker(&mu), 0, 0, &j)
		if err != nil {
			t.Fatal("failed to schedule:", err)
		}

		if status := task.Join(); status != TaskSuccess {
			t.Fatalf("expected success, got %v", status)
		}

		j.Verify(t, true, []Event{
			&EventTaskScheduled{Task: task.ID},
			&EventTaskLocked{Task: task.ID},
			&EventTaskFinished{Task: task.ID, Status: "success"},
		})

		// The mutex must be usable again.
		if !mu.TryLock() {
			t.Fatal("mutex still locked after task")
		}
		mu.Unlock()
	})

	t.Run("waits", func(t *testing.T) {
		var mu sync.Mutex

		const obtain = 20 * time.Millisecond
		const release = 30 * time.Millisecond

		start := time.Now()

		task, err := ScheduleMutexTask(SyncLocker(&mu), obtain, release, nil)
		if err != nil {
			t.Fatal("failed to schedule:", err)
		}

		if status := task.Join(); status != TaskSuccess {
			t.Fatalf("expected success, got %v", status)
		}

		if elapsed := time.Since(start); elapsed < obtain+release {
			t.Errorf("task finished after %v, expected at least %v", elapsed, obtain+release)
		}
	})

	t.Run("negative waits", func(t *testing.T) {
		var mu sync.Mutex

		task, err := ScheduleMutexTask(SyncLocker(&mu), -time.Second, -time.Second, nil)
		if err != nil {
			t.Fatal("failed to schedule:", err)
		}

		if status := task.Join(); status != TaskSuccess {
			t.Fatalf("expected success, got %v", status)
		}
	})

	t.Run("blocked by owner", func(t *testing.T) {
		var mu sync.Mutex
		mu.Lock()

		task, err := ScheduleMutexTask(SyncLocker(&mu), 0, 0, nil)
		if err != nil {
			t.Fatal("failed to schedule:", err)
		}

		select {
		case <-task.Done():
			t.Fatal("task finished while mutex is held")
		case <-time.After(20 * time.Millisecond):
		}

		mu.Unlock()

		if status := task.Join(); status != TaskSuccess {
			t.Fatalf("expected success, got %v", status)
		}
	})

	t.Run("shared mutex", func(t *testing.T) {
		var mu sync.Mutex
		locker := &countingLocker{Locker: SyncLocker(&mu)}

		const release = 50 * time.Millisecond

		start := time.Now()
		tasks := make([]*MutexTask, 2)

		for i := range tasks {
			task, err := ScheduleMutexTask(locker, 0, release, nil)
			if err != nil {
				t.Fatal("failed to schedule:", err)
			}
			tasks[i] = task
		}

		for i, task := range tasks {
			if status := task.Join(); status != TaskSuccess {
				t.Errorf("task %d: expected success, got %v", i, status)
			}
		}

		if max := atomic.LoadInt32(&locker.max); max != 1 {
			t.Errorf("expected at most 1 holder at once, got %d", max)
		}

		if elapsed := time.Since(start); elapsed < 2*release {
			t.Errorf("tasks finished after %v, expected at least %v", elapsed, 2*release)
		}
	})
}

func TestMutexTaskFailure(t *testing.T) {
	t.Run("nil locker", func(t *testing.T) {
		task, err := ScheduleMutexTask(nil, 0, 0, nil)
		if !errors.Is(err, ErrNilLocker) {
			t.Fatalf("expected ErrNilLocker, got %v", err)
		}
		if task != nil {
			t.Fatal("unexpected task on nil locker")
		}
	})

	t.Run("nil mutex", func(t *testing.T) {
		var mu *sync.Mutex

		if _, err := ScheduleMutexTask(SyncLocker(mu), 0, 0, nil); !errors.Is(err, ErrNilLocker) {
			t.Fatalf("expected ErrNilLocker, got %v", err)
		}
	})

	t.Run("nil locker in body", func(t *testing.T) {
		j := mockJournal{}

		task := newMutexTask(nil, 0, 0, &j)
		task.run()

		if status := task.Join(); status != TaskFailure {
			t.Fatalf("expected failure, got %v", status)
		}

		j.Verify(t, true, []Event{
			&EventTaskFinished{Task: task.ID, Status: "failure", Error: "nil locker"},
		})
	})

	t.Run("lock error", func(t *testing.T) {
		j := mockJournal{}
		locker := failingLocker{lockErr: errors.New("EINVAL")}

		task, err := ScheduleMutexTask(locker, 0, 0, &j)
		if err != nil {
			t.Fatal("failed to schedule:", err)
		}

		if status := task.Join(); status != TaskFailure {
			t.Fatalf("expected failure, got %v", status)
		}

		j.Verify(t, true, []Event{
			&EventTaskScheduled{Task: task.ID},
			&EventTaskFinished{Task: task.ID, Status: "failure", Error: "failed to lock: EINVAL"},
		})
	})

	t.Run("unlock error", func(t *testing.T) {
		locker := failingLocker{unlockErr: errors.New("EPERM")}

		task, err := ScheduleMutexTask(locker, 0, 0, nil)
		if err != nil {
			t.Fatal("failed to schedule:", err)
		}

		if status := task.Join(); status != TaskFailure {
			t.Fatalf("expected failure, got %v", status)
		}
	})
}

func TestFileLocker(t *testing.T) {
	t.Run("shared", func(t *testing.T) {
		locker := &countingLocker{
			Locker: NewFileLocker(filepath.Join(t.TempDir(), "lock")),
		}

		tasks := make([]*MutexTask, 3)
		for i := range tasks {
			task, err := ScheduleMutexTask(locker, 0, 10*time.Millisecond, nil)
			if err != nil {
				t.Fatal("failed to schedule:", err)
			}
			tasks[i] = task
		}

		for i, task := range tasks {
			if status := task.Join(); status != TaskSuccess {
				t.Errorf("task %d: expected success, got %v", i, status)
			}
		}

		if max := atomic.LoadInt32(&locker.max); max != 1 {
			t.Errorf("expected at most 1 holder at once, got %d", max)
		}
	})

	t.Run("separate", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lock")

		held := NewFileLocker(path)
		if err := held.Lock(); err != nil {
			t.Fatal("failed to lock:", err)
		}

		task, err := ScheduleMutexTask(NewFileLocker(path), 0, 0, nil)
		if err != nil {
			t.Fatal("failed to schedule:", err)
		}

		select {
		case <-task.Done():
			t.Fatal("task finished while file lock is held elsewhere")
		case <-time.After(20 * time.Millisecond):
		}

		if err := held.Unlock(); err != nil {
			t.Fatal("failed to unlock:", err)
		}

		if status := task.Join(); status != TaskSuccess {
			t.Fatalf("expected success, got %v", status)
		}
	})

	t.Run("unopenable", func(t *testing.T) {
		locker := NewFileLocker(filepath.Join(t.TempDir(), "missing", "lock"))

		task, err := ScheduleMutexTask(locker, 0, 0, nil)
		if err != nil {
			t.Fatal("failed to schedule:", err)
		}

		if status := task.Join(); status != TaskFailure {
			t.Fatalf("expected failure, got %v", status)
		}
	})

	t.Run("unlock unlocked", func(t *testing.T) {
		locker := NewFileLocker(filepath.Join(t.TempDir(), "lock"))

		if err := locker.Unlock(); !errors.Is(err, ErrNotLocked) {
			t.Fatalf("expected ErrNotLocked, got %v", err)
		}
	})
}

func TestSyncLockerUnlockUnlocked(t *testing.T) {
	var mu sync.Mutex

	if err := SyncLocker(&mu).Unlock(); !errors.Is(err, ErrNotLocked) {
		t.Fatalf("expected ErrNotLocked, got %v", err)
	}

	if !mu.TryLock() {
		t.Fatal("mutex left locked after probing")
	}
}
