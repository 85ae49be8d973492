package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"git.unix.lgbt/diamondburned/sysprim/sysprim"
	"github.com/pkg/errors"
)

// Entry is a single decoded journal entry.
type Entry struct {
	Time  time.Time
	Event sysprim.Event
}

// Reader implements a primitive reader that can parse journals written by
// Writer from top to bottom.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a new journal reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{bufio.NewReader(r)}
}

// Read reads a single entry. An EOF error is returned if the reader has been
// fully consumed. Empty lines are skipped.
func (r *Reader) Read() (sysprim.Event, time.Time, error) {
	for {
		line, err := r.r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			entry, decodeErr := DecodeEntry(line)
			if decodeErr != nil {
				return nil, time.Time{}, decodeErr
			}
			return entry.Event, entry.Time, nil
		}

		if err != nil {
			return nil, time.Time{}, err
		}
	}
}

// DecodeEntry decodes a single line written by Writer.
func DecodeEntry(line []byte) (Entry, error) {
	var rawEvent struct {
		Time time.Time       `json:"time"`
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(line, &rawEvent); err != nil {
		return Entry{}, errors.Wrap(err, "failed to decode JSON")
	}

	event := sysprim.NewEvent(rawEvent.Type)
	if event == nil {
		return Entry{}, fmt.Errorf("unknown event %q", rawEvent.Type)
	}

	if err := json.Unmarshal(rawEvent.Data, event); err != nil {
		return Entry{}, errors.Wrap(err, "failed to decode event data")
	}

	return Entry{rawEvent.Time, event}, nil
}
