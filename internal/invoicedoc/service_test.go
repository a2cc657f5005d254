package invoicedoc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labdesk/internal/labapi"
	"labdesk/internal/models"
)

const invoiceHTML = `<!DOCTYPE html><html><head><title>INV-001</title></head><body><div class="invoice-container"><img src="logo.png"></div></body></html>`

var fastTiming = Timing{Ready: 50 * time.Millisecond, Image: 50 * time.Millisecond, Settle: time.Millisecond}

func newService(docs *MockDocuments, win *FakeWindow, openErr error) *Service {
	opener := &MockOpener{OpenFunc: func(context.Context) (Window, error) {
		if openErr != nil {
			return nil, openErr
		}
		return win, nil
	}}
	return NewService(docs, opener, zerolog.Nop()).WithTiming(fastTiming, fastTiming)
}

func htmlDocs() *MockDocuments {
	return &MockDocuments{InvoiceDocumentFunc: func(context.Context, string) (string, error) {
		return invoiceHTML, nil
	}}
}

func TestDocumentKey(t *testing.T) {
	k, err := DocumentKey(&models.Invoice{ID: "65f0", InvoiceIDs: "INV-001"})
	require.NoError(t, err)
	assert.Equal(t, "INV-001", k)

	k, err = DocumentKey(&models.Invoice{ID: "65f0"})
	require.NoError(t, err)
	assert.Equal(t, "65f0", k)

	_, err = DocumentKey(&models.Invoice{})
	assert.ErrorIs(t, err, ErrMissingInvoiceID)
	_, err = DocumentKey(nil)
	assert.ErrorIs(t, err, ErrMissingInvoiceID)
}

func TestIsHTMLDocument(t *testing.T) {
	assert.True(t, IsHTMLDocument(invoiceHTML))
	assert.True(t, IsHTMLDocument("<!doctype html><p>x</p>"))
	assert.False(t, IsHTMLDocument(`{"message":"not found"}`))
}

func TestAwait(t *testing.T) {
	ctx := context.Background()

	done, err := Await(ctx, time.Second, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, done)

	done, err = Await(ctx, 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err, "running out of time is not an error")
	assert.False(t, done)

	boom := errors.New("boom")
	_, err = Await(ctx, time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Await(cancelled, time.Second, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrint_Flow(t *testing.T) {
	docs := htmlDocs()
	win := &FakeWindow{}
	s := newService(docs, win, nil)

	pdf, err := s.Print(context.Background(), "INV-001")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-print", string(pdf))
	assert.Equal(t, []string{"INV-001"}, docs.Calls())

	require.Len(t, win.writes, 2)
	assert.Equal(t, Placeholder, win.writes[0])
	assert.Equal(t, invoiceHTML, win.writes[1])
	assert.Equal(t, []string{"write", "write", "ready", "images", "print"}, win.events)
	assert.Equal(t, fastTiming.Image, win.perImage)
	assert.True(t, win.closed)
}

func TestPrint_SlowDocumentStillPrints(t *testing.T) {
	win := &FakeWindow{ReadyDelay: time.Second}
	s := newService(htmlDocs(), win, nil)

	start := time.Now()
	_, err := s.Print(context.Background(), "INV-001")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Contains(t, win.events, "print")
}

func TestPrint_MissingKeyMakesNoRequest(t *testing.T) {
	docs := htmlDocs()
	opened := false
	opener := &MockOpener{OpenFunc: func(context.Context) (Window, error) {
		opened = true
		return &FakeWindow{}, nil
	}}
	s := NewService(docs, opener, zerolog.Nop())

	_, err := s.Print(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrMissingInvoiceID)
	_, err = s.Download(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingInvoiceID)
	_, err = s.View(context.Background(), "", "/pdf")
	assert.ErrorIs(t, err, ErrMissingInvoiceID)

	assert.Empty(t, docs.Calls())
	assert.False(t, opened)
}

func TestPrint_PopupBlocked(t *testing.T) {
	docs := htmlDocs()
	s := newService(docs, nil, ErrPopupBlocked)

	_, err := s.Print(context.Background(), "INV-001")
	assert.ErrorIs(t, err, ErrPopupBlocked)
	assert.Equal(t, "Please allow popups to print invoices", Message(err, ActionPrint))
	assert.Empty(t, docs.Calls())
}

func TestPrint_NotHTMLClosesWindow(t *testing.T) {
	docs := &MockDocuments{InvoiceDocumentFunc: func(context.Context, string) (string, error) {
		return `{"ok":true}`, nil
	}}
	win := &FakeWindow{}
	s := newService(docs, win, nil)

	_, err := s.Print(context.Background(), "INV-001")
	assert.ErrorIs(t, err, ErrNotHTML)
	assert.True(t, win.closed)
	assert.NotContains(t, win.events, "print")
}

func TestDownload_CapturesInvoiceRegion(t *testing.T) {
	win := &FakeWindow{}
	s := newService(htmlDocs(), win, nil)

	pdf, err := s.Download(context.Background(), "INV-001")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-region", string(pdf))
	assert.Equal(t, []string{"write", "ready", "images", "selector .invoice-container", "capture .invoice-container"}, win.events)
	assert.True(t, win.closed)
	assert.Equal(t, "invoice-INV-001.pdf", Filename("INV-001"))
}

func TestView_InjectsControlWithoutRendering(t *testing.T) {
	opener := &MockOpener{OpenFunc: func(context.Context) (Window, error) {
		t.Fatal("view must not open a document window")
		return nil, nil
	}}
	s := NewService(htmlDocs(), opener, zerolog.Nop())

	out, err := s.View(context.Background(), "INV-001", "/billing/invoices/INV-001/pdf")
	require.NoError(t, err)
	assert.Contains(t, out, `id="downloadInvoiceBtn"`)
	assert.Contains(t, out, `"invoice-INV-001.pdf"`)
	assert.Regexp(t, `invoices\\?/INV-001\\?/pdf`, out)
	assert.True(t, strings.HasSuffix(out, "</body></html>"))
	assert.Less(t, strings.Index(out, "invoice-container"), strings.Index(out, "downloadInvoiceBtn"))
}

func TestInjectDownloadControl_NoBody(t *testing.T) {
	out, err := InjectDownloadControl("<!DOCTYPE html><p>x</p>", "K", "/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html><p>x</p>"))
	assert.Contains(t, out, "downloadInvoiceBtn")
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Invoice ID not found", Message(ErrMissingInvoiceID, ActionDownload))
	assert.Equal(t, "Please allow popups to view invoices", Message(ErrPopupBlocked, ActionDownload))
	assert.Equal(t, "Invalid response format. Expected HTML.", Message(ErrNotHTML, ActionPrint))
	assert.Equal(t, "Invoice not found", Message(&labapi.APIError{Status: 404, Message: "Invoice not found"}, ActionPrint))
	assert.Equal(t, "Failed to open print window", Message(errors.New("dial tcp"), ActionPrint))
	assert.Equal(t, "Failed to open invoice", Message(errors.New("dial tcp"), ActionDownload))
}

func TestInjectDownloadControl_NonUTF8Body(t *testing.T) {
	doc := "<!doctype html><html><body><p>" + strings.Repeat("\xe9", 20) + "K</p></BODY></html>"
	out, err := InjectDownloadControl(doc, "INV-1", "/x/pdf")
	require.NoError(t, err)

	i := strings.Index(out, "downloadInvoiceBtn")
	require.Positive(t, i)
	assert.True(t, strings.HasPrefix(out, "<!doctype html><html><body><p>"+strings.Repeat("\xe9", 20)+"K</p>"))
	assert.True(t, strings.HasSuffix(out, "</BODY></html>"))
	assert.Less(t, strings.Index(out, "K</p>"), i)
}
