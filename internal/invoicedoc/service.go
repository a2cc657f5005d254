// Package invoicedoc renders server-generated invoice documents for printing
// and PDF download in document windows.
package invoicedoc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"labdesk/internal/labapi"
)

var ErrPopupBlocked = errors.New("invoicedoc: document window could not be opened")

// Documents fetches the raw invoice document.
type Documents interface {
	InvoiceDocument(ctx context.Context, key string) (string, error)
}

// Opener opens document windows. A refused window is reported as
// ErrPopupBlocked.
type Opener interface {
	Open(ctx context.Context) (Window, error)
}

// Window is one open document window.
type Window interface {
	Write(ctx context.Context, html string) error
	// WaitReady returns once the document has finished loading.
	WaitReady(ctx context.Context) error
	// WaitSelector returns once an element matches selector.
	WaitSelector(ctx context.Context, selector string) error
	// WaitImages returns once every image has loaded, failed, or spent
	// perImage waiting.
	WaitImages(ctx context.Context, perImage time.Duration) error
	Print(ctx context.Context) ([]byte, error)
	CaptureRegion(ctx context.Context, selector string, paper Paper) ([]byte, error)
	Close() error
}

// Paper sizes are in inches.
type Paper struct {
	Width, Height float64
	Margin        float64
}

const mmPerInch = 25.4

// A4 portrait with 5mm margins.
var A4 = Paper{Width: 210 / mmPerInch, Height: 297 / mmPerInch, Margin: 5 / mmPerInch}

// Timing caps each wait of a flow.
type Timing struct {
	Ready  time.Duration
	Image  time.Duration
	Settle time.Duration
}

var (
	PrintTiming    = Timing{Ready: 2 * time.Second, Image: 3 * time.Second, Settle: 500 * time.Millisecond}
	DownloadTiming = Timing{Ready: 3 * time.Second, Image: 5 * time.Second, Settle: time.Second}
)

type Action int

const (
	ActionPrint Action = iota
	ActionDownload
)

// Message turns a flow error into the notice shown to the user.
func Message(err error, action Action) string {
	switch {
	case errors.Is(err, ErrMissingInvoiceID):
		return "Invoice ID not found"
	case errors.Is(err, ErrPopupBlocked) && action == ActionPrint:
		return "Please allow popups to print invoices"
	case errors.Is(err, ErrPopupBlocked):
		return "Please allow popups to view invoices"
	case errors.Is(err, ErrNotHTML):
		return "Invalid response format. Expected HTML."
	}
	if action == ActionPrint {
		return labapi.MessageOr(err, "Failed to open print window")
	}
	return labapi.MessageOr(err, "Failed to open invoice")
}

type Service struct {
	docs     Documents
	opener   Opener
	log      zerolog.Logger
	print    Timing
	download Timing
}

func NewService(docs Documents, opener Opener, log zerolog.Logger) *Service {
	return &Service{
		docs:     docs,
		opener:   opener,
		log:      log,
		print:    PrintTiming,
		download: DownloadTiming,
	}
}

// WithTiming overrides the print and download waits.
func (s *Service) WithTiming(print, download Timing) *Service {
	s.print = print
	s.download = download
	return s
}

func (s *Service) fetch(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrMissingInvoiceID
	}
	doc, err := s.docs.InvoiceDocument(ctx, key)
	if err != nil {
		return "", err
	}
	if !IsHTMLDocument(doc) {
		return "", ErrNotHTML
	}
	return doc, nil
}

// Print renders the invoice in a window showing a placeholder until the
// document arrives, waits for it and its images, and returns the printed
// pages as PDF.
func (s *Service) Print(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrMissingInvoiceID
	}
	win, err := s.opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer win.Close()

	if err := win.Write(ctx, Placeholder); err != nil {
		return nil, fmt.Errorf("write placeholder: %w", err)
	}

	doc, err := s.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	pdf, err := s.render(ctx, win, doc, s.print, func(ctx context.Context) ([]byte, error) {
		return win.Print(ctx)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice", key).Int("bytes", len(pdf)).Msg("invoice printed")
	return pdf, nil
}

// View returns the invoice document with the download control injected.
// The PDF is only produced when the control requests pdfURL.
func (s *Service) View(ctx context.Context, key, pdfURL string) (string, error) {
	doc, err := s.fetch(ctx, key)
	if err != nil {
		return "", err
	}
	return InjectDownloadControl(doc, key, pdfURL)
}

// Download captures the invoice region as an A4 PDF.
func (s *Service) Download(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	win, err := s.opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer win.Close()

	pdf, err := s.render(ctx, win, doc, s.download, func(ctx context.Context) ([]byte, error) {
		if _, err := Await(ctx, s.download.Ready, func(ctx context.Context) error {
			return win.WaitSelector(ctx, ContainerSelector)
		}); err != nil {
			return nil, err
		}
		return win.CaptureRegion(ctx, ContainerSelector, A4)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice", key).Int("bytes", len(pdf)).Msg("invoice downloaded")
	return pdf, nil
}

func (s *Service) render(ctx context.Context, win Window, doc string, t Timing, capture func(context.Context) ([]byte, error)) ([]byte, error) {
	if err := win.Write(ctx, doc); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	ready, err := Await(ctx, t.Ready, win.WaitReady)
	if err != nil {
		return nil, fmt.Errorf("wait for document: %w", err)
	}
	if !ready {
		s.log.Debug().Dur("timeout", t.Ready).Msg("document not ready, continuing")
	}

	// images load in parallel, each capped by the window
	if _, err := Await(ctx, t.Image+t.Ready, func(ctx context.Context) error {
		return win.WaitImages(ctx, t.Image)
	}); err != nil {
		return nil, fmt.Errorf("wait for images: %w", err)
	}

	if err := settle(ctx, t.Settle); err != nil {
		return nil, err
	}
	return capture(ctx)
}
