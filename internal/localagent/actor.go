package localagent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/rahul/botpilot/internal/engine"
)

// BrowserActor executes local plans against a Chrome instance. It
// implements engine.PlanActor: each ActOnPlan call runs the plan's next
// step and reports what happened in the same phrasing the remote agent
// uses, so the classifier treats both backends alike.
type BrowserActor struct {
	Book     *PlanBook
	Headless bool

	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func NewBrowserActor(book *PlanBook, headless bool) *BrowserActor {
	return &BrowserActor{Book: book, Headless: headless}
}

func (b *BrowserActor) initBrowser() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.cleanup()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", b.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	return chromedp.Run(b.browserCtx)
}

func (b *BrowserActor) cleanup() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.allocCtx = nil
}

// Close shuts the browser down.
func (b *BrowserActor) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanup()
}

// ActOnPlan runs the plan's next step. Plan lookups and step failures
// come back as classifiable outcomes, not errors: only a broken browser
// is an error, mirroring the remote transport contract.
func (b *BrowserActor) ActOnPlan(_ context.Context, req engine.ActRequest) (*engine.ActOutcome, error) {
	plan, err := b.Book.Get(req.PlanID)
	if err != nil {
		return &engine.ActOutcome{
			RawMessage: fmt.Sprintf("new plan required: %v", err),
		}, nil
	}

	if plan.next >= len(plan.Steps) {
		return &engine.ActOutcome{
			RawMessage:    "plan already finished",
			PlanCompleted: true,
			Progress:      planProgress(plan, len(plan.Steps)),
		}, nil
	}

	if err := b.initBrowser(); err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %v", err)
	}

	step := plan.Steps[plan.next]
	started := time.Now()
	detail, err := b.runStep(step)
	elapsed := time.Since(started).Milliseconds()

	if err != nil {
		return &engine.ActOutcome{
			RawMessage:      fmt.Sprintf("Step %d failed: %v", step.ID, err),
			StepNumber:      step.ID,
			Progress:        planProgress(plan, plan.next),
			ExecutionTimeMs: elapsed,
		}, nil
	}

	plan.next++
	msg := fmt.Sprintf("Step %d completed: %s", step.ID, step.Description)
	if detail != "" {
		msg += "\n" + detail
	}
	return &engine.ActOutcome{
		RawMessage:      msg,
		StepNumber:      step.ID,
		PlanCompleted:   plan.next == len(plan.Steps),
		Progress:        planProgress(plan, plan.next),
		ExecutionTimeMs: elapsed,
	}, nil
}

func (b *BrowserActor) runStep(step PlanStep) (string, error) {
	actionCtx, cancel := context.WithTimeout(b.browserCtx, 60*time.Second)
	defer cancel()

	switch step.Action {
	case "navigate":
		if step.URL == "" {
			return "", fmt.Errorf("url is required for 'navigate'")
		}
		return "", chromedp.Run(actionCtx, chromedp.Navigate(step.URL))

	case "click":
		if step.Selector == "" {
			return "", fmt.Errorf("selector is required for 'click'")
		}
		return "", chromedp.Run(actionCtx, chromedp.Click(step.Selector, chromedp.ByQuery))

	case "type":
		if step.Selector == "" || step.Text == "" {
			return "", fmt.Errorf("selector and text are required for 'type'")
		}
		return "", chromedp.Run(actionCtx, chromedp.SendKeys(step.Selector, step.Text, chromedp.ByQuery))

	case "wait":
		if step.Selector == "" {
			return "", fmt.Errorf("selector is required for 'wait'")
		}
		return "", chromedp.Run(actionCtx, chromedp.WaitVisible(step.Selector, chromedp.ByQuery))

	case "extract":
		var html, pageURL string
		err := chromedp.Run(actionCtx,
			chromedp.Location(&pageURL),
			chromedp.ActionFunc(func(ctx context.Context) error {
				node, err := dom.GetDocument().Do(ctx)
				if err != nil {
					return err
				}
				html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
				return err
			}),
		)
		if err != nil {
			return "", err
		}
		return extractReadable(html, pageURL)

	default:
		return "", fmt.Errorf("unknown action %q", step.Action)
	}
}

func planProgress(plan *Plan, completed int) *engine.Progress {
	total := len(plan.Steps)
	pct := 0.0
	if total > 0 {
		pct = float64(completed) / float64(total) * 100
	}
	return &engine.Progress{
		CompletedSteps: completed,
		TotalSteps:     total,
		Percentage:     pct,
	}
}
