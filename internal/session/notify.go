package session

import "sync"

type EventKind string

const (
	EventCriteria  EventKind = "criteria"
	EventDeck      EventKind = "deck"
	EventShortlist EventKind = "shortlist"
	EventRates     EventKind = "rates"
	EventSelection EventKind = "selection"
)

// Event tells subscribers which store changed. HotelID is set when the
// change concerns a single hotel.
type Event struct {
	Kind    EventKind
	HotelID string
}

// notifier is embedded by every store. Listeners run on the mutating
// goroutine after the store lock has been released.
type notifier struct {
	lmu       sync.Mutex
	nextID    int
	listeners map[int]func(Event)
}

// Subscribe registers fn and returns a function that removes it.
func (n *notifier) Subscribe(fn func(Event)) (unsubscribe func()) {
	n.lmu.Lock()
	defer n.lmu.Unlock()
	if n.listeners == nil {
		n.listeners = map[int]func(Event){}
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.lmu.Lock()
			delete(n.listeners, id)
			n.lmu.Unlock()
		})
	}
}

func (n *notifier) emit(ev Event) {
	n.lmu.Lock()
	fns := make([]func(Event), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.lmu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
