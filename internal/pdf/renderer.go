package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/aniiishetty/event/internal/model"
)

// A4 in inches, 10mm margins.
const (
	paperWidth  = 8.27
	paperHeight = 11.69
	margin      = 0.39
)

// Renderer turns assembled HTML into PDF bytes through a headless browser.
// One allocator is shared for the process lifetime; every render gets a
// fresh tab that is torn down in a defer whether the render succeeds or
// not.
type Renderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	log         *zerolog.Logger
}

func NewRenderer(timeout time.Duration, log *zerolog.Logger) *Renderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Renderer{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		timeout:     timeout,
		log:         log,
	}
}

func (r *Renderer) Close() {
	r.allocCancel()
}

// RenderHTML loads html into a new tab and captures it as a paginated A4
// PDF. A single attempt, no retry; the caller decides what a failure means.
func (r *Renderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Tab contexts must descend from the allocator, so the per-render
	// timeout is applied to the tab context rather than the caller's.
	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx)
	defer tabCancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, r.timeout)
	defer timeoutCancel()

	var buf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				WithPrintBackground(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		r.log.Error().Err(err).Msg("pdf render failed")
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf, nil
}

// RenderIDCard produces the single-attendee badge/invitation document.
func (r *Renderer) RenderIDCard(ctx context.Context, reg *model.Registration) ([]byte, error) {
	html, err := BuildIDCardHTML(reg)
	if err != nil {
		return nil, err
	}
	return r.RenderHTML(ctx, html)
}

// RenderRoster produces the bulk attendee listing with embedded photos.
func (r *Renderer) RenderRoster(ctx context.Context, regs []model.Registration) ([]byte, error) {
	html, err := BuildRosterHTML(regs)
	if err != nil {
		return nil, err
	}
	return r.RenderHTML(ctx, html)
}
