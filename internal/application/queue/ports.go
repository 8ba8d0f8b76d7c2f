package queue

import (
	"context"
	"time"

	"github.com/turtacn/ChemXGen/internal/domain/report"
	"github.com/turtacn/ChemXGen/internal/domain/task"
)

// Analyzer runs one analysis against the prediction backend.  The queue
// picks the method from the task kind.
type Analyzer interface {
	PlanSynthesis(ctx context.Context, molecule string, routes int) (*report.SynthesisPlan, error)
	AnalyzeToxicity(ctx context.Context, molecule string) (*report.ToxicityReport, error)
	AnalyzeProperties(ctx context.Context, molecule string) (*report.PropertyReport, error)
	SearchSimilar(ctx context.Context, molecule, database string) (*report.SimilarityReport, error)
	OptimizeConditions(ctx context.Context, molecule string) (*report.ConditionReport, error)
}

// EventPublisher receives lifecycle events after the change is persisted.
type EventPublisher interface {
	Publish(ctx context.Context, ev task.LifecycleEvent) error
}

// Metrics receives queue instrumentation.
type Metrics interface {
	TaskSubmitted(kind task.Kind)
	TaskFinished(kind task.Kind, status task.Status, elapsed time.Duration)
	InFlight(n int)
	Running(n int)
	PersistFailed(op string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, task.LifecycleEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) TaskSubmitted(task.Kind)                            {}
func (nopMetrics) TaskFinished(task.Kind, task.Status, time.Duration) {}
func (nopMetrics) InFlight(int)                                       {}
func (nopMetrics) Running(int)                                        {}
func (nopMetrics) PersistFailed(string)                               {}
