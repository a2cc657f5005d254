package invoicedoc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const DefaultMaxWindows = 4

// ChromeOpener opens document windows as tabs of one headless Chrome. The
// browser is started on first use. At most maxWindows tabs are open at a
// time; further opens are refused rather than queued.
type ChromeOpener struct {
	execPath   string
	maxWindows int64
	slots      *semaphore.Weighted
	log        zerolog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func NewChromeOpener(execPath string, maxWindows int, log zerolog.Logger) *ChromeOpener {
	if maxWindows <= 0 {
		maxWindows = DefaultMaxWindows
	}
	return &ChromeOpener{
		execPath:   execPath,
		maxWindows: int64(maxWindows),
		slots:      semaphore.NewWeighted(int64(maxWindows)),
		log:        log,
	}
}

func (o *ChromeOpener) browser() (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.browserCtx != nil {
		return o.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if o.execPath != "" {
		opts = append(opts, chromedp.ExecPath(o.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			o.log.Debug().Msgf(format, args...)
		}),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, err
	}

	o.browserCtx = browserCtx
	o.cancelBrowser = cancelBrowser
	o.cancelAlloc = cancelAlloc
	o.log.Info().Str("exec", o.execPath).Int64("max_windows", o.maxWindows).Msg("headless browser started")
	return browserCtx, nil
}

func (o *ChromeOpener) Open(ctx context.Context) (Window, error) {
	if !o.slots.TryAcquire(1) {
		return nil, fmt.Errorf("%w: %d windows already open", ErrPopupBlocked, o.maxWindows)
	}

	browserCtx, err := o.browser()
	if err != nil {
		o.slots.Release(1)
		return nil, fmt.Errorf("%w: start browser: %v", ErrPopupBlocked, err)
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	w := &chromeWindow{ctx: tabCtx, cancel: cancel, release: func() { o.slots.Release(1) }}
	if err := w.run(ctx, chromedp.Navigate("about:blank")); err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: open tab: %v", ErrPopupBlocked, err)
	}
	return w, nil
}

// Close shuts the browser down. Open starts a new one if called again.
func (o *ChromeOpener) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.browserCtx == nil {
		return
	}
	o.cancelBrowser()
	o.cancelAlloc()
	o.browserCtx = nil
}

type chromeWindow struct {
	ctx     context.Context
	cancel  context.CancelFunc
	release func()
	once    sync.Once
}

// run executes actions in the tab, aborting when either the tab or the
// caller's context ends.
func (w *chromeWindow) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(w.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (w *chromeWindow) Write(ctx context.Context, html string) error {
	return w.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
	}))
}

func (w *chromeWindow) eval(ctx context.Context, js string) error {
	var ok bool
	return w.run(ctx, chromedp.Evaluate(js, &ok, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

const readyJS = `new Promise(function (resolve) {
  if (document.readyState === 'complete') { resolve(true); return; }
  window.addEventListener('load', function () { resolve(true); }, {once: true});
})`

func (w *chromeWindow) WaitReady(ctx context.Context) error {
	return w.eval(ctx, readyJS)
}

func (w *chromeWindow) WaitSelector(ctx context.Context, selector string) error {
	return w.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

const imagesJS = `Promise.all(Array.from(document.images).map(function (img) {
  if (img.complete) { return true; }
  return new Promise(function (resolve) {
    var t = setTimeout(function () { resolve(false); }, %d);
    var done = function () { clearTimeout(t); resolve(true); };
    img.addEventListener('load', done, {once: true});
    img.addEventListener('error', done, {once: true});
  });
})).then(function () { return true; })`

func (w *chromeWindow) WaitImages(ctx context.Context, perImage time.Duration) error {
	return w.eval(ctx, fmt.Sprintf(imagesJS, perImage.Milliseconds()))
}

func (w *chromeWindow) Print(ctx context.Context) ([]byte, error) {
	var pdf []byte
	err := w.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
		return err
	}))
	return pdf, err
}

const isolateJS = `(function (selector) {
  var style = document.createElement('style');
  style.textContent = '@media print { body * { visibility: hidden !important; } ' +
    selector + ', ' + selector + ' * { visibility: visible !important; } ' +
    selector + ' { position: absolute; left: 0; top: 0; width: 100%%; background: #fff; } }';
  document.head.appendChild(style);
  return document.querySelector(selector) !== null;
})(%s)`

func (w *chromeWindow) CaptureRegion(ctx context.Context, selector string, paper Paper) ([]byte, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}

	var found bool
	var pdf []byte
	err = w.run(ctx,
		chromedp.Evaluate(fmt.Sprintf(isolateJS, quoted), &found),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !found {
				return fmt.Errorf("no element matches %s", selector)
			}
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(false).
				WithPaperWidth(paper.Width).
				WithPaperHeight(paper.Height).
				WithMarginTop(paper.Margin).
				WithMarginBottom(paper.Margin).
				WithMarginLeft(paper.Margin).
				WithMarginRight(paper.Margin).
				Do(ctx)
			return err
		}),
	)
	return pdf, err
}

func (w *chromeWindow) Close() error {
	w.once.Do(func() {
		w.cancel()
		w.release()
	})
	return nil
}
