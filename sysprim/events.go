package sysprim

// eventType describes an event type.
type eventType = string

const (
	eventWarning           eventType = "warning"
	eventAcquired          eventType = "acquired lock"
	eventCommandSpawnError eventType = "command spawn error"
	eventCommandSpawned    eventType = "command spawned"
	eventCommandExited     eventType = "command exited"
	eventTaskScheduled     eventType = "task scheduled"
	eventTaskLocked        eventType = "task locked"
	eventTaskFinished      eventType = "task finished"
	eventFileWritten       eventType = "file written"
	eventFileWriteError    eventType = "file write error"
)

// Event is an interface describing known events.
type Event interface {
	Type() string
	event()
}

// NewEvent creates a new event from the given event type. It is used primarily
// for decoding events from its type. Nil is returned if the event type is
// unknown.
func NewEvent(eventType string) Event {
	switch eventType {
	case eventWarning:
		return &EventWarning{}
	case eventAcquired:
		return &EventAcquired{}
	case eventCommandSpawnError:
		return &EventCommandSpawnError{}
	case eventCommandSpawned:
		return &EventCommandSpawned{}
	case eventCommandExited:
		return &EventCommandExited{}
	case eventTaskScheduled:
		return &EventTaskScheduled{}
	case eventTaskLocked:
		return &EventTaskLocked{}
	case eventTaskFinished:
		return &EventTaskFinished{}
	case eventFileWritten:
		return &EventFileWritten{}
	case eventFileWriteError:
		return &EventFileWriteError{}
	default:
		return nil
	}
}

// Failed returns true if the event reports a failure of any kind.
func Failed(ev Event) bool {
	switch ev := ev.(type) {
	case *EventWarning, *EventCommandSpawnError, *EventFileWriteError:
		return true
	case *EventCommandExited:
		return !ev.IsSuccess()
	case *EventTaskFinished:
		return ev.Status != TaskSuccess.String()
	default:
		return false
	}
}

// EventWarning is emitted when a non-fatal error occurs.
type EventWarning struct {
	Component string `json:"component"`
	Error     string `json:"error"`
}

func (ev *EventWarning) Type() string { return eventWarning }
func (ev *EventWarning) event()       {}

// EventAcquired is emitted when the flock (i.e. write lock on the journal) is
// acquired, which is on startup.
type EventAcquired struct{}

func (ev *EventAcquired) Type() string { return eventAcquired }
func (ev *EventAcquired) event()       {}

// EventCommandSpawnError is emitted when a command fails to start for any
// reason, including its output file failing to open.
type EventCommandSpawnError struct {
	Argv   []string `json:"argv"`
	Reason string   `json:"reason"`
}

func (ev *EventCommandSpawnError) Type() string { return eventCommandSpawnError }
func (ev *EventCommandSpawnError) event()       {}

// EventCommandSpawned is emitted when a command has been started.
type EventCommandSpawned struct {
	Argv   []string `json:"argv"`
	PID    int      `json:"pid"`
	Stdout string   `json:"stdout,omitempty"` // redirect target
}

func (ev *EventCommandSpawned) Type() string { return eventCommandSpawned }
func (ev *EventCommandSpawned) event()       {}

// EventCommandExited is emitted when a command has terminated for any reason.
// A PID of 0 means that the command never got to run its executable.
type EventCommandExited struct {
	PID      int      `json:"pid"`
	Argv     []string `json:"argv"`
	ExitCode int      `json:"exit_code"` // -1 if signaled
	Signal   string   `json:"signal,omitempty"`
}

// IsSuccess returns true if the command exited normally with status 0.
func (ev EventCommandExited) IsSuccess() bool {
	return ev.Signal == "" && ev.ExitCode == 0
}

func (ev *EventCommandExited) Type() string { return eventCommandExited }
func (ev *EventCommandExited) event()       {}

// EventTaskScheduled is emitted when a mutex task has been handed to its
// goroutine.
type EventTaskScheduled struct {
	Task            uint64 `json:"task"`
	WaitToObtainMs  int64  `json:"wait_to_obtain_ms"`
	WaitToReleaseMs int64  `json:"wait_to_release_ms"`
}

func (ev *EventTaskScheduled) Type() string { return eventTaskScheduled }
func (ev *EventTaskScheduled) event()       {}

// EventTaskLocked is emitted when a mutex task has acquired its lock.
type EventTaskLocked struct {
	Task uint64 `json:"task"`
}

func (ev *EventTaskLocked) Type() string { return eventTaskLocked }
func (ev *EventTaskLocked) event()       {}

// EventTaskFinished is emitted right before a mutex task's goroutine exits.
type EventTaskFinished struct {
	Task   uint64 `json:"task"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (ev *EventTaskFinished) Type() string { return eventTaskFinished }
func (ev *EventTaskFinished) event()       {}

// EventFileWritten is emitted when WriteFile has written and closed a file.
type EventFileWritten struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

func (ev *EventFileWritten) Type() string { return eventFileWritten }
func (ev *EventFileWritten) event()       {}

// EventFileWriteError is emitted when WriteFile fails to open, write or close
// a file.
type EventFileWriteError struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

func (ev *EventFileWriteError) Type() string { return eventFileWriteError }
func (ev *EventFileWriteError) event()       {}
