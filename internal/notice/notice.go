// Package notice carries transient user-facing messages and change signals
// from page state to the streams that render it.
package notice

import "sync"

type Level string

const (
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Board queues notices until the page drains them. Every push also fires
// the board's Signal.
type Board struct {
	mu     sync.Mutex
	items  []Notice
	signal *Signal
}

func NewBoard(s *Signal) *Board {
	if s == nil {
		s = NewSignal()
	}
	return &Board{signal: s}
}

func (b *Board) Push(level Level, msg string) {
	b.mu.Lock()
	b.items = append(b.items, Notice{Level: level, Message: msg})
	b.mu.Unlock()
	b.signal.Fire()
}

// Drain returns and forgets every queued notice.
func (b *Board) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}

func (b *Board) Signal() *Signal { return b.signal }

// Signal coalesces change notifications: any number of Fire calls between
// two reads wake the listener once.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

func (s *Signal) Fire() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *Signal) C() <-chan struct{} { return s.ch }
