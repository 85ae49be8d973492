package journal

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var tailChunk int64 = 4096

// Tail reads the last n entries of the journal, oldest first. The reader is
// scanned backwards in chunks, so the whole journal is never read unless it
// has fewer than n entries. A trailing incomplete line is ignored.
func Tail(r io.ReadSeeker, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	off, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find end of file")
	}

	var buf []byte

	// n complete lines need n+1 delimiters unless the start of the file is
	// reached.
	for off > 0 && bytes.Count(buf, []byte{'\n'}) <= n {
		size := tailChunk
		if size > off {
			size = off
		}
		off -= size

		if _, err := r.Seek(off, io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "failed to seek backwards")
		}

		chunk := make([]byte, size, int(size)+len(buf))
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, errors.Wrap(err, "failed to read seeked chunk")
		}

		buf = append(chunk, buf...)
	}

	lines := bytes.Split(buf, []byte{'\n'})
	// The last segment is either empty or still being written.
	lines = lines[:len(lines)-1]
	// The first segment is cut off if the start was never reached.
	if off > 0 && len(lines) > 0 {
		lines = lines[1:]
	}

	entries := make([]Entry, 0, n)

	for i := len(lines) - 1; i >= 0 && len(entries) < n; i-- {
		if len(bytes.TrimSpace(lines[i])) == 0 {
			continue
		}

		entry, err := DecodeEntry(lines[i])
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	// Reverse so that the oldest entry comes first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}
