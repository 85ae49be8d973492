package journal

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// ErrJournalRemoved is returned by Follow if the journal file is removed or
// renamed while being followed.
var ErrJournalRemoved = errors.New("journal removed")

// Follow decodes entries from the current offset of f onwards and calls fn for
// each of them. Once the end of the file is reached, it waits for the file to
// be written to and continues. Follow returns nil once the context is
// canceled, or the first error returned by fn.
func Follow(ctx context.Context, f *os.File, fn func(Entry) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer w.Close()

	if err := w.Add(f.Name()); err != nil {
		return errors.Wrap(err, "failed to watch journal")
	}

	var pending []byte

	drain := func() error {
		b, err := io.ReadAll(f)
		if err != nil {
			return errors.Wrap(err, "failed to read journal")
		}

		pending = append(pending, b...)

		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				return nil
			}

			line := pending[:i]
			pending = pending[i+1:]

			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			entry, err := DecodeEntry(line)
			if err != nil {
				return err
			}

			if err := fn(entry); err != nil {
				return err
			}
		}
	}

	// Consume whatever was written before the watch started.
	if err := drain(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "inotify error")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			switch {
			case ev.Op&fsnotify.Write != 0:
				if err := drain(); err != nil {
					return err
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				return ErrJournalRemoved
			}
		}
	}
}
