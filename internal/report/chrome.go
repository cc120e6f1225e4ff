package report

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"
)

// waitForImages resolves once every <img> in the document has loaded or failed.
const waitForImages = `Promise.all(Array.from(document.images)
	.filter(img => !img.complete)
	.map(img => new Promise(resolve => { img.onload = img.onerror = resolve; })))`

// ChromeEngine renders through a headless Chrome, either a browser process it
// starts per session or a remote DevTools endpoint. At most maxConcurrent
// sessions are open at once; Open blocks until a slot frees up or ctx ends.
type ChromeEngine struct {
	remoteURL string
	execPath  string
	slots     *semaphore.Weighted
}

func NewChromeEngine(remoteURL, execPath string, maxConcurrent int64) *ChromeEngine {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ChromeEngine{
		remoteURL: remoteURL,
		execPath:  execPath,
		slots:     semaphore.NewWeighted(maxConcurrent),
	}
}

func (e *ChromeEngine) Open(ctx context.Context) (Session, error) {
	if err := e.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire browser slot: %w", err)
	}

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if e.remoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, e.remoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)
		if e.execPath != "" {
			opts = append(opts, chromedp.ExecPath(e.execPath))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		ctx: tabCtx,
		release: func() {
			cancelTab()
			cancelAlloc()
			e.slots.Release(1)
		},
	}
	// An empty Run starts the browser and attaches the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

type chromeSession struct {
	ctx     context.Context
	release func()
	once    sync.Once
}

func (s *chromeSession) SetContent(_ context.Context, markup string) error {
	return chromedp.Run(s.ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, markup).Do(ctx)
		}),
		chromedp.Evaluate(waitForImages, nil, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
}

func (s *chromeSession) PrintPDF(_ context.Context, opts PageOptions) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(opts.PrintBackground).
			WithPaperWidth(opts.PaperWidth).
			WithPaperHeight(opts.PaperHeight).
			WithMarginTop(opts.Margin).
			WithMarginRight(opts.Margin).
			WithMarginBottom(opts.Margin).
			WithMarginLeft(opts.Margin).
			Do(ctx)
		if err != nil {
			return err
		}
		buf = data
		return nil
	}))
	return buf, err
}

// Close tears down the tab and the browser (or remote connection) and frees
// the engine slot. It is safe to call more than once.
func (s *chromeSession) Close() error {
	s.once.Do(s.release)
	return nil
}
