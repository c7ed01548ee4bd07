// Package statussink renders statusbus.Event values for a human: a small
// interface with a console implementation, so the scheduler stays
// decoupled from how progress is displayed.
package statussink

import "github.com/mlsmithjr/wandarr-go/internal/statusbus"

// Sink receives status events as the scheduler drains the status bus.
type Sink interface {
	Update(e statusbus.Event)
}

// NullSink discards every event.
type NullSink struct{}

// Update implements Sink.
func (NullSink) Update(statusbus.Event) {}

// MultiSink fans one event out to several sinks, e.g. a console sink plus a
// log sink.
type MultiSink []Sink

// Update implements Sink.
func (m MultiSink) Update(e statusbus.Event) {
	for _, s := range m {
		s.Update(e)
	}
}
