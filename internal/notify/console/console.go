// Package console provides the default no-dependency notification sink:
// structured log lines, used when Telegram isn't configured.
package console

import (
	"log"

	"github.com/weatheragent/core/internal/notify"
)

// Sink logs every notification event instead of sending it anywhere.
type Sink struct{}

// New builds a console Sink.
func New() *Sink {
	return &Sink{}
}

// Notify implements notify.Sink.
func (s *Sink) Notify(event notify.Event) {
	log.Printf("[notify:%s] %s %v", event.Kind, event.Summary, event.Fields)
}
