package sysprim

import (
	"reflect"
	"sync"
	"testing"
)

// mockJournal is an in-memory storage of journals, primarily used for testing.
// A zero-value instance is a valid instance.
type mockJournal struct {
	mutex    sync.Mutex
	journals []Event
}

var _ Journaler = (*mockJournal)(nil)

// Write appends a journal event into the internal store.
func (m *mockJournal) Write(ev Event) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.journals = append(m.journals, ev)
	return nil
}

// Journals returns the journal slice.
func (m *mockJournal) Journals() []Event {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]Event(nil), m.journals...)
}

// Verify verifies that the given journals slice is equal to the one stored
// internally. If strict is true, then a length check is performed, otherwise,
// the unmatched events are returned.
//
// Consecutive calls to Verify will match the remaining unmatched events.
func (m *mockJournal) Verify(t *testing.T, strict bool, journals []Event) []Event {
	t.Helper()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if strict && len(journals) != len(m.journals) {
		t.Errorf("mismatch journal length, got %d, expected %d", len(m.journals), len(journals))
		for i, ev := range m.journals {
			t.Logf("journal %d: %#v", i, ev)
		}
		return nil
	}

	if len(journals) > len(m.journals) {
		t.Errorf("missing journals, got %d, expected at least %d", len(m.journals), len(journals))
		return nil
	}

	for i, ev := range journals {
		if !reflect.DeepEqual(m.journals[i], ev) {
			t.Errorf("journal %d mismatch, got %#v, expected %#v", i, m.journals[i], ev)
		}
	}

	m.journals = m.journals[len(journals):]
	return m.journals
}

func TestNewEvent(t *testing.T) {
	events := []Event{
		&EventWarning{},
		&EventAcquired{},
		&EventCommandSpawnError{},
		&EventCommandSpawned{},
		&EventCommandExited{},
		&EventTaskScheduled{},
		&EventTaskLocked{},
		&EventTaskFinished{},
		&EventFileWritten{},
		&EventFileWriteError{},
	}

	for _, ev := range events {
		got := NewEvent(ev.Type())
		if !reflect.DeepEqual(got, ev) {
			t.Errorf("NewEvent(%q) = %#v, expected %#v", ev.Type(), got, ev)
		}
	}

	if ev := NewEvent("nonexistent"); ev != nil {
		t.Errorf("unexpected event for unknown type: %#v", ev)
	}
}

func TestFailed(t *testing.T) {
	type test struct {
		name   string
		event  Event
		failed bool
	}

	var tests = []test{
		{"warning", &EventWarning{Error: "a"}, true},
		{"spawned", &EventCommandSpawned{PID: 1}, false},
		{"exit 0", &EventCommandExited{PID: 1}, false},
		{"exit 1", &EventCommandExited{PID: 1, ExitCode: 1}, true},
		{"signaled", &EventCommandExited{PID: 1, ExitCode: -1, Signal: "SIGKILL"}, true},
		{"task success", &EventTaskFinished{Status: "success"}, false},
		{"task failure", &EventTaskFinished{Status: "failure"}, true},
		{"write error", &EventFileWriteError{Op: "open"}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if failed := Failed(test.event); failed != test.failed {
				t.Errorf("expected failed = %v, got %v", test.failed, failed)
			}
		})
	}
}
