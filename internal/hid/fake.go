package hid

import (
	"sync"
	"time"
)

// Fake is an in-memory Transport for tests and the simulator. Inbound
// reports are queued by the caller; outbound writes are recorded.
type Fake struct {
	mu       sync.Mutex
	inbound  [][]byte
	writes   [][]byte
	writeErr error
	closed   bool
}

func NewFake() *Fake { return &Fake{} }

// QueueReport schedules one inbound report for a future read.
func (f *Fake) QueueReport(report []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, append([]byte(nil), report...))
}

// FailWrites makes every subsequent Write return err. Pass nil to heal.
func (f *Fake) FailWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// Writes returns a copy of everything written so far.
func (f *Fake) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) ReadTimeout(buf []byte, _ time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 {
		return 0, nil
	}
	r := f.inbound[0]
	f.inbound = f.inbound[1:]
	return copy(buf, r), nil
}

func (f *Fake) Write(data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), data...))
	return len(data), nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
