package journal

import (
	"log/syslog"

	"git.unix.lgbt/diamondburned/sysprim/sysprim"
	"github.com/pkg/errors"
)

// SyslogWriter is a journaler that writes events to the system logger under
// the user facility. The writer is opened when created and must be closed on
// exit.
type SyslogWriter struct {
	w *syslog.Writer
}

var _ sysprim.Journaler = (*SyslogWriter)(nil)

const syslogPriority = syslog.LOG_USER | syslog.LOG_DEBUG

// NewSyslogWriter connects to the local system logger with the given tag.
func NewSyslogWriter(tag string) (*SyslogWriter, error) {
	return DialSyslogWriter("", "", tag)
}

// DialSyslogWriter connects to the syslog daemon at raddr on the given
// network. An empty network connects to the local system logger.
func DialSyslogWriter(network, raddr, tag string) (*SyslogWriter, error) {
	w, err := syslog.Dial(network, raddr, syslogPriority, tag)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to syslog")
	}

	return &SyslogWriter{w}, nil
}

// Write writes failures as errors, warnings as warnings and everything else as
// debug messages.
func (s *SyslogWriter) Write(ev sysprim.Event) error {
	msg := FormatEvent(ev)

	var err error

	if _, ok := ev.(*sysprim.EventWarning); ok {
		err = s.w.Warning(msg)
	} else if sysprim.Failed(ev) {
		err = s.w.Err(msg)
	} else {
		err = s.w.Debug(msg)
	}

	return errors.Wrap(err, "failed to write to syslog")
}

// Close closes the connection to the system logger.
func (s *SyslogWriter) Close() error {
	return s.w.Close()
}
