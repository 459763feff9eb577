// Package localagent provides in-process development backends for the
// engine: a chromedp-driven browser actor and an LLM planner. They let
// the control loop run end-to-end without the remote automation service.
package localagent

import (
	"fmt"
	"sync"
)

// PlanStep is one browser action in a local plan.
type PlanStep struct {
	ID          int    `json:"id"`
	Action      string `json:"action"` // navigate, click, type, extract, wait
	URL         string `json:"url,omitempty"`
	Selector    string `json:"selector,omitempty"`
	Text        string `json:"text,omitempty"`
	Description string `json:"description"`
}

// Plan is an ordered set of steps plus a cursor over them.
type Plan struct {
	ID    string
	Steps []PlanStep
	next  int
}

// PlanBook holds the plans known to the local backends, keyed by id.
// The actor and the planner share one book.
type PlanBook struct {
	mu    sync.Mutex
	plans map[string]*Plan
}

func NewPlanBook() *PlanBook {
	return &PlanBook{plans: make(map[string]*Plan)}
}

func (b *PlanBook) Add(p *Plan) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plans[p.ID] = p
}

func (b *PlanBook) Get(id string) (*Plan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.plans[id]
	if !ok {
		return nil, fmt.Errorf("unknown plan %q", id)
	}
	return p, nil
}
