// Package patientsearch applies the debounced patient lookup policy shared by
// the billing and registration pages.
package patientsearch

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"labdesk/internal/debounce"
	"labdesk/internal/models"
)

const (
	DefaultDelay = 800 * time.Millisecond
	MinQueryLen  = 2
)

// Finder runs the remote search. An empty keyword lists every patient.
type Finder interface {
	SearchPatients(ctx context.Context, keyword string, page, limit int) (*models.PatientPage, error)
}

// EmptyPolicy decides what an empty query does.
type EmptyPolicy int

const (
	// ClearOnEmpty drops the current results without a request.
	ClearOnEmpty EmptyPolicy = iota
	// ListOnEmpty lists all patients after the idle window.
	ListOnEmpty
)

type Options struct {
	Delay   time.Duration
	Page    int
	Limit   int
	OnEmpty EmptyPolicy
}

// ResultFunc receives every completed search. err is non-nil when the
// request failed; results are then left to the caller to keep or drop.
type ResultFunc func(query string, page *models.PatientPage, err error)

type Search struct {
	finder   Finder
	opts     Options
	debounce *debounce.Debouncer
	onResult ResultFunc
	base     context.Context
	log      zerolog.Logger

	mu    sync.Mutex
	query string
	page  int
}

// New binds a search to base, which outlives individual requests and is
// used for requests fired by the idle timer.
func New(base context.Context, finder Finder, opts Options, onResult ResultFunc, log zerolog.Logger) *Search {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	return &Search{
		finder:   finder,
		opts:     opts,
		debounce: debounce.New(opts.Delay),
		onResult: onResult,
		base:     base,
		log:      log,
		page:     opts.Page,
	}
}

func (s *Search) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Type records a keystroke. Any pending search is cancelled first.
func (s *Search) Type(query string) {
	s.mu.Lock()
	s.query = query
	s.page = 1
	s.mu.Unlock()

	s.debounce.Cancel()

	n := utf8.RuneCountInString(query)
	switch {
	case n == 0 && s.opts.OnEmpty == ClearOnEmpty:
		s.onResult(query, nil, nil)
	case n == 0:
		s.schedule(query, 1)
	case n < MinQueryLen:
		// too short to send
	default:
		s.schedule(query, 1)
	}
}

// Submit searches right away regardless of query length.
func (s *Search) Submit(ctx context.Context) {
	s.debounce.Cancel()
	s.mu.Lock()
	query, page := s.query, s.page
	s.mu.Unlock()
	s.run(ctx, query, page)
}

// GoTo fetches another page of the current query immediately.
func (s *Search) GoTo(ctx context.Context, page int) {
	if page < 1 {
		page = 1
	}
	s.debounce.Cancel()
	s.mu.Lock()
	s.page = page
	query := s.query
	s.mu.Unlock()
	s.run(ctx, query, page)
}

// Stop cancels the pending search.
func (s *Search) Stop() {
	s.debounce.Cancel()
}

func (s *Search) schedule(query string, page int) {
	s.debounce.Trigger(func() {
		s.run(s.base, query, page)
	})
}

func (s *Search) run(ctx context.Context, query string, page int) {
	res, err := s.finder.SearchPatients(ctx, query, page, s.opts.Limit)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("patient search failed")
	}
	s.onResult(query, res, err)
}
