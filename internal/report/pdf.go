package report

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A4 в дюймах и поля 1in
const (
	a4Width  = 8.27
	a4Height = 11.69
	margin   = 1.0
)

// ChromeConverter печатает HTML в PDF через headless Chrome.
// Браузер запускается один раз, каждый вызов открывает новую вкладку.
type ChromeConverter struct {
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc

	startOnce sync.Once
	startErr  error
	closeOnce sync.Once
}

// NewChromeConverter готовит аллокатор браузера. execPath пустой означает поиск Chrome в PATH.
func NewChromeConverter(execPath string) *ChromeConverter {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	return &ChromeConverter{
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancel:      cancel,
	}
}

// Convert печатает html в PDF формата A4. Отмена ctx прерывает печать.
func (c *ChromeConverter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	const op = "report.Convert"

	// первый Run на контексте браузера запускает процесс Chrome
	c.startOnce.Do(func() {
		c.startErr = chromedp.Run(c.browserCtx)
	})
	if c.startErr != nil {
		return nil, fmt.Errorf("%s: start browser: %w", op, c.startErr)
	}

	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()

	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pdf, nil
}

// Close останавливает браузер
func (c *ChromeConverter) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.cancelAlloc()
	})
}
