package journal

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"time"

	"git.unix.lgbt/diamondburned/sysprim/sysprim"
	"github.com/pkg/errors"
)

// Event describes the JSON structure of an event to be written.
type Event struct {
	Time time.Time     `json:"time"`
	Type string        `json:"type"`
	Data sysprim.Event `json:"data"`
}

// Writer is a simple journaler that writes line-delimited JSON events into the
// writer.
type Writer struct{ w io.Writer }

var _ sysprim.Journaler = (*Writer)(nil)

// NewWriter creates a new journal writer.
func NewWriter(w io.Writer) Writer {
	return Writer{w}
}

// Write writes the given event into the writer. Each event is written with a
// single Write call, so writes to an O_APPEND file are atomic.
func (l Writer) Write(ev sysprim.Event) error {
	evJSON := Event{
		Time: time.Now(),
		Type: ev.Type(),
		Data: ev,
	}

	buf := bytes.Buffer{}
	buf.Grow(512)

	// Encode appends the new line.
	if err := json.NewEncoder(&buf).Encode(evJSON); err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	_, err := l.w.Write(buf.Bytes())
	if err != nil {
		return errors.Wrap(err, "failed to write event")
	}

	return nil
}

// HumanWriter is a journaler that writes events as human-readable lines, meant
// for a terminal.
type HumanWriter struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

var _ sysprim.Journaler = (*HumanWriter)(nil)

// NewHumanWriter creates a new human writer.
func NewHumanWriter(w io.Writer) *HumanWriter {
	return &HumanWriter{w: w, now: time.Now}
}

// Write writes the event as a single line.
func (h *HumanWriter) Write(ev sysprim.Event) error {
	line := h.now().Format("15:04:05.000") + " " + FormatEvent(ev) + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := io.WriteString(h.w, line); err != nil {
		return errors.Wrap(err, "failed to write event")
	}

	return nil
}

// FormatEvent formats the event into a single line without a trailing new
// line. Failures are prefixed with "error:".
func FormatEvent(ev sysprim.Event) string {
	data, err := json.Marshal(ev)
	if err != nil {
		data = []byte(err.Error())
	}

	var prefix string
	if sysprim.Failed(ev) {
		prefix = "error: "
	}

	return prefix + ev.Type() + " " + string(data)
}
