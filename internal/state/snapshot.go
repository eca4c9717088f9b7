package state

// Snapshot is the immutable copy of loop state published once per tick.
// DeltaUpdate and DeltaFrame are the actual elapsed seconds behind the last
// iteration and the last LED frame.
type Snapshot struct {
	DeltaUpdate float64
	DeltaFrame  float64
	Matrix      [][]KeyState
	LedColors   []HSVA
	LayerState  uint8
}

// Mailbox is a latest-wins conduit from the loop to its consumers. Publish
// never blocks; a slow or absent reader only ever loses stale snapshots.
type Mailbox struct {
	ch chan Snapshot
}

func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan Snapshot, 1)}
}

// Publish replaces any unread snapshot with s. Single producer only.
func (m *Mailbox) Publish(s Snapshot) {
	select {
	case m.ch <- s:
		return
	default:
	}
	// Slot is occupied by a stale snapshot; evict it and retry once. With
	// one producer the retry cannot race another fill.
	select {
	case <-m.ch:
	default:
	}
	select {
	case m.ch <- s:
	default:
	}
}

// Poll returns the freshest unread snapshot, if any.
func (m *Mailbox) Poll() (Snapshot, bool) {
	select {
	case s := <-m.ch:
		return s, true
	default:
		return Snapshot{}, false
	}
}
