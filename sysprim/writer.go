package sysprim

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// WriteFile writes content into the file at path, creating or truncating it.
// Failing to open, write or close the file is reported into the journaler and
// returned.
func WriteFile(j Journaler, path, content string) error {
	j = orDiscard(j)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return writeFileError(j, path, "open", err)
	}

	n, err := io.WriteString(f, content)
	if err != nil {
		f.Close()
		return writeFileError(j, path, "write", err)
	}

	if err := f.Close(); err != nil {
		return writeFileError(j, path, "close", err)
	}

	j.Write(&EventFileWritten{
		Path:  path,
		Bytes: n,
	})

	return nil
}

func writeFileError(j Journaler, path, op string, err error) error {
	j.Write(&EventFileWriteError{
		Path:  path,
		Op:    op,
		Error: err.Error(),
	})

	return errors.Wrapf(err, "failed to %s file", op)
}
