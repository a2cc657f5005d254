package invoicedoc

import (
	"context"
	"sync"
	"time"
)

type MockDocuments struct {
	InvoiceDocumentFunc func(ctx context.Context, key string) (string, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockDocuments) InvoiceDocument(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, key)
	m.mu.Unlock()
	return m.InvoiceDocumentFunc(ctx, key)
}

func (m *MockDocuments) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type MockOpener struct {
	OpenFunc func(ctx context.Context) (Window, error)
}

func (m *MockOpener) Open(ctx context.Context) (Window, error) {
	return m.OpenFunc(ctx)
}

// FakeWindow records what a flow did with it.
type FakeWindow struct {
	ReadyDelay time.Duration

	mu       sync.Mutex
	writes   []string
	events   []string
	perImage time.Duration
	closed   bool
}

func (w *FakeWindow) record(ev string) {
	w.mu.Lock()
	w.events = append(w.events, ev)
	w.mu.Unlock()
}

func (w *FakeWindow) Write(ctx context.Context, html string) error {
	w.mu.Lock()
	w.writes = append(w.writes, html)
	w.mu.Unlock()
	w.record("write")
	return nil
}

func (w *FakeWindow) WaitReady(ctx context.Context) error {
	w.record("ready")
	if w.ReadyDelay == 0 {
		return nil
	}
	select {
	case <-time.After(w.ReadyDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *FakeWindow) WaitSelector(ctx context.Context, selector string) error {
	w.record("selector " + selector)
	return nil
}

func (w *FakeWindow) WaitImages(ctx context.Context, perImage time.Duration) error {
	w.mu.Lock()
	w.perImage = perImage
	w.mu.Unlock()
	w.record("images")
	return nil
}

func (w *FakeWindow) Print(ctx context.Context) ([]byte, error) {
	w.record("print")
	return []byte("%PDF-print"), nil
}

func (w *FakeWindow) CaptureRegion(ctx context.Context, selector string, paper Paper) ([]byte, error) {
	w.record("capture " + selector)
	return []byte("%PDF-region"), nil
}

func (w *FakeWindow) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}
