package queue

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/ChemXGen/internal/domain/report"
	"github.com/turtacn/ChemXGen/internal/domain/task"
)

// fakeAnalyzer returns canned reports and records calls.  Hooks override a
// kind; block, when set, is waited on before any call returns.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []string
	args  []any

	failWith error
	block    chan struct{}
	entered  chan string
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{entered: make(chan string, 64)}
}

func (f *fakeAnalyzer) record(ctx context.Context, kind string, arg any) error {
	f.mu.Lock()
	f.calls = append(f.calls, kind)
	f.args = append(f.args, arg)
	block, fail := f.block, f.failWith
	f.mu.Unlock()

	f.entered <- kind
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fail
}

func (f *fakeAnalyzer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAnalyzer) Args() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.args...)
}

func (f *fakeAnalyzer) PlanSynthesis(ctx context.Context, molecule string, routes int) (*report.SynthesisPlan, error) {
	if err := f.record(ctx, "synthesis", routes); err != nil {
		return nil, err
	}
	return &report.SynthesisPlan{Target: molecule, Routes: []report.SynthesisRoute{{RouteID: "R1", Summary: "two steps"}}}, nil
}

func (f *fakeAnalyzer) AnalyzeToxicity(ctx context.Context, molecule string) (*report.ToxicityReport, error) {
	if err := f.record(ctx, "toxicity", molecule); err != nil {
		return nil, err
	}
	return &report.ToxicityReport{MoleculeName: "Benzene", Summary: "Known carcinogen"}, nil
}

func (f *fakeAnalyzer) AnalyzeProperties(ctx context.Context, molecule string) (*report.PropertyReport, error) {
	if err := f.record(ctx, "property", molecule); err != nil {
		return nil, err
	}
	return &report.PropertyReport{MolecularWeight: "78.11 g/mol", LogP: 2.1}, nil
}

func (f *fakeAnalyzer) SearchSimilar(ctx context.Context, molecule, database string) (*report.SimilarityReport, error) {
	if err := f.record(ctx, "similarity", database); err != nil {
		return nil, err
	}
	return &report.SimilarityReport{Query: molecule, Summary: "3 analogues"}, nil
}

func (f *fakeAnalyzer) OptimizeConditions(ctx context.Context, molecule string) (*report.ConditionReport, error) {
	if err := f.record(ctx, "conditions", molecule); err != nil {
		return nil, err
	}
	return &report.ConditionReport{Reaction: molecule, Recommended: report.ConditionSet{Solvent: "THF"}}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []task.LifecycleEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev task.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Types() []task.LifecycleType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]task.LifecycleType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type recordingMetrics struct {
	mu        sync.Mutex
	submitted int
	finished  map[task.Status]int
	persist   []string
}

func (m *recordingMetrics) TaskSubmitted(task.Kind) {
	m.mu.Lock()
	m.submitted++
	m.mu.Unlock()
}

func (m *recordingMetrics) TaskFinished(_ task.Kind, s task.Status, _ time.Duration) {
	m.mu.Lock()
	if m.finished == nil {
		m.finished = make(map[task.Status]int)
	}
	m.finished[s]++
	m.mu.Unlock()
}

func (m *recordingMetrics) InFlight(int) {}
func (m *recordingMetrics) Running(int)  {}

func (m *recordingMetrics) PersistFailed(op string) {
	m.mu.Lock()
	m.persist = append(m.persist, op)
	m.mu.Unlock()
}
