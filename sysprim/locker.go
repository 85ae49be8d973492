package sysprim

import (
	"sync"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// ErrNotLocked is returned when unlocking a Locker that is not locked.
var ErrNotLocked = errors.New("not locked")

// Locker is a mutual exclusion lock whose operations can fail. An error means
// the lock itself is broken, never that it is contended: Lock blocks until the
// lock is available.
type Locker interface {
	Lock() error
	Unlock() error
}

type syncLocker struct {
	l sync.Locker
}

// SyncLocker adapts a sync.Locker into a Locker. Nil is returned if l is nil,
// including a nil *sync.Mutex or *sync.RWMutex.
func SyncLocker(l sync.Locker) Locker {
	switch l := l.(type) {
	case nil:
		return nil
	case *sync.Mutex:
		if l == nil {
			return nil
		}
	case *sync.RWMutex:
		if l == nil {
			return nil
		}
	}

	return syncLocker{l}
}

func (l syncLocker) Lock() error {
	l.l.Lock()
	return nil
}

// Unlock unlocks the lock. Unlocking a sync.Mutex that isn't locked is a fatal
// error, so the lock is probed first if it allows that.
func (l syncLocker) Unlock() error {
	if tl, ok := l.l.(interface{ TryLock() bool }); ok && tl.TryLock() {
		l.l.Unlock()
		return ErrNotLocked
	}

	l.l.Unlock()
	return nil
}

// fileLocker is a flock-backed lock. flock only excludes other open file
// descriptions, and a single Flock instance considers itself already locked,
// so goroutines sharing one fileLocker are serialized by mu first.
type fileLocker struct {
	mu sync.Mutex
	fl *flock.Flock
}

// NewFileLocker creates a Locker that holds an exclusive flock on the file at
// path while locked. The file is created on Lock if it does not exist. The
// lock excludes both other goroutines using the same Locker and other
// processes locking the same path.
func NewFileLocker(path string) Locker {
	return &fileLocker{fl: flock.New(path)}
}

func (l *fileLocker) Lock() error {
	l.mu.Lock()

	if err := l.fl.Lock(); err != nil {
		l.mu.Unlock()
		return errors.Wrap(err, "failed to acquire file lock")
	}

	return nil
}

func (l *fileLocker) Unlock() error {
	if l.mu.TryLock() {
		l.mu.Unlock()
		return ErrNotLocked
	}
	defer l.mu.Unlock()

	return errors.Wrap(l.fl.Unlock(), "failed to release file lock")
}
