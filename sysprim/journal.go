package sysprim

// Journaler describes an event logger. It is the only diagnostic sink
// components write to; there is no global logger.
type Journaler interface {
	Write(Event) error
}

type discardJournaler struct{}

// Discard is a Journaler that drops every event.
var Discard Journaler = discardJournaler{}

func (discardJournaler) Write(Event) error { return nil }

func orDiscard(j Journaler) Journaler {
	if j == nil {
		return Discard
	}
	return j
}
