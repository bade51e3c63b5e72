package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/neurocursor/internal/session"
)

// DefaultRelaySize bounds the number of engine events waiting for the UI loop.
const DefaultRelaySize = 256

// EventMsg carries an engine event into the Bubble Tea program.
type EventMsg session.Event

// Relay buffers engine events for the program. Engine callers never block on
// the UI loop; events are dropped when the buffer is full.
type Relay struct {
	ch chan session.Event
}

// NewRelay creates a relay holding up to size pending events.
func NewRelay(size int) *Relay {
	if size <= 0 {
		size = DefaultRelaySize
	}
	return &Relay{ch: make(chan session.Event, size)}
}

// Listener returns the engine listener feeding the relay.
func (r *Relay) Listener() session.Listener {
	return func(ev session.Event) {
		select {
		case r.ch <- ev:
		default:
		}
	}
}

func (r *Relay) wait() tea.Cmd {
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		return EventMsg(<-r.ch)
	}
}
