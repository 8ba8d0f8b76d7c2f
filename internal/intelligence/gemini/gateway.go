// Package gemini implements the prediction gateway: one call per analysis
// kind, each sending a prompt with a JSON response schema to the Gemini API
// and decoding the answer into a typed report.
package gemini

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/turtacn/ChemXGen/internal/domain/molecule"
	"github.com/turtacn/ChemXGen/internal/domain/report"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Operation names used for logging and latency metrics.
const (
	OpSynthesis  = "synthesis"
	OpToxicity   = "toxicity"
	OpProperty   = "property"
	OpSimilarity = "similarity"
	OpConditions = "conditions"
	OpReaction   = "reaction"
	OpGenerate   = "generate"
)

// Observer records gateway call latency by operation and outcome
// ("ok", "error", "bad_response").
type Observer interface {
	ObserveGateway(op, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveGateway(string, string, time.Duration) {}

// Option configures a Gateway.
type Option func(*Gateway)

// WithObserver sets the latency observer.
func WithObserver(o Observer) Option {
	return func(g *Gateway) {
		if o != nil {
			g.observer = o
		}
	}
}

// WithLocalSimilarity replaces model-estimated similarity scores with
// Tanimoto scores computed from path fingerprints whenever both structures
// parse.
func WithLocalSimilarity(enabled bool) Option {
	return func(g *Gateway) { g.localSimilarity = enabled }
}

// Gateway is stateless apart from its collaborators and is safe for
// concurrent use.
type Gateway struct {
	gen             Generator
	logger          logging.Logger
	observer        Observer
	localSimilarity bool
}

// NewGateway creates a gateway over gen.
func NewGateway(gen Generator, logger logging.Logger, opts ...Option) *Gateway {
	g := &Gateway{gen: gen, logger: logger.Named("gemini"), observer: nopObserver{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PlanSynthesis devises up to routes retrosynthesis routes for target.
func (g *Gateway) PlanSynthesis(ctx context.Context, target string, routes int) (*report.SynthesisPlan, error) {
	if err := requireInput("molecule", target); err != nil {
		return nil, err
	}
	if routes <= 0 {
		routes = 5
	}
	out := &report.SynthesisPlan{}
	if err := g.call(ctx, OpSynthesis, synthesisPrompt(target, routes), synthesisPlanSchema, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) AnalyzeToxicity(ctx context.Context, mol string) (*report.ToxicityReport, error) {
	if err := requireInput("molecule", mol); err != nil {
		return nil, err
	}
	out := &report.ToxicityReport{}
	if err := g.call(ctx, OpToxicity, toxicityPrompt(mol), toxicityReportSchema, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) AnalyzeProperties(ctx context.Context, mol string) (*report.PropertyReport, error) {
	if err := requireInput("molecule", mol); err != nil {
		return nil, err
	}
	out := &report.PropertyReport{}
	if err := g.call(ctx, OpProperty, propertyPrompt(mol), propertyReportSchema, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchSimilar lists known compounds similar to mol.  Hits are sorted by
// decreasing similarity.
func (g *Gateway) SearchSimilar(ctx context.Context, mol, database string) (*report.SimilarityReport, error) {
	if err := requireInput("molecule", mol); err != nil {
		return nil, err
	}
	out := &report.SimilarityReport{}
	if err := g.call(ctx, OpSimilarity, similarityPrompt(mol, database), similarityReportSchema, out); err != nil {
		return nil, err
	}
	if out.Query == "" {
		out.Query = mol
	}
	for i := range out.Hits {
		h := &out.Hits[i]
		if h.Source == "" {
			h.Source = database
		}
		if !g.localSimilarity {
			continue
		}
		score, err := molecule.Similarity(mol, h.SMILES)
		if err != nil {
			g.logger.Debug("keeping model similarity score", logging.String("hit", h.Name), logging.Err(err))
			continue
		}
		h.Similarity = math.Round(score*1000) / 1000
	}
	sort.SliceStable(out.Hits, func(i, j int) bool { return out.Hits[i].Similarity > out.Hits[j].Similarity })
	return out, nil
}

func (g *Gateway) OptimizeConditions(ctx context.Context, reaction string) (*report.ConditionReport, error) {
	if err := requireInput("reaction", reaction); err != nil {
		return nil, err
	}
	out := &report.ConditionReport{}
	if err := g.call(ctx, OpConditions, conditionsPrompt(reaction), conditionReportSchema, out); err != nil {
		return nil, err
	}
	if out.Reaction == "" {
		out.Reaction = reaction
	}
	return out, nil
}

// PredictReaction predicts the major products of r1 + r2.
func (g *Gateway) PredictReaction(ctx context.Context, r1, r2 string) (*report.ReactionPrediction, error) {
	if err := requireInput("reactant1", r1); err != nil {
		return nil, err
	}
	if err := requireInput("reactant2", r2); err != nil {
		return nil, err
	}
	out := &report.ReactionPrediction{}
	if err := g.call(ctx, OpReaction, reactionPrompt(r1, r2), reactionPredictionSchema, out); err != nil {
		return nil, err
	}
	out.Reactants = []string{r1, r2}
	return out, nil
}

// GenerateMolecule proposes a novel molecule matching a free-text brief.
func (g *Gateway) GenerateMolecule(ctx context.Context, brief string) (*report.GeneratedMolecule, error) {
	if err := requireInput("prompt", brief); err != nil {
		return nil, err
	}
	out := &report.GeneratedMolecule{}
	if err := g.call(ctx, OpGenerate, generatePrompt(brief), generatedMoleculeSchema, out); err != nil {
		return nil, err
	}
	out.MolString = molecule.Clean(out.MolString)
	return out, nil
}

func (g *Gateway) call(ctx context.Context, op, prompt string, schema *genai.Schema, out report.Checker) error {
	start := time.Now()
	text, err := g.gen.Generate(ctx, Request{System: systemPrompt, Prompt: prompt, Schema: schema})
	if err != nil {
		g.observer.ObserveGateway(op, "error", time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		g.logger.Error("gemini call failed", logging.String("op", op), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeGatewayFailed, "analysis failed").WithDetail("op=" + op)
	}
	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		g.observer.ObserveGateway(op, "bad_response", time.Since(start))
		g.logger.Warn("unreadable gemini response", logging.String("op", op), logging.Int("bytes", len(text)))
		return errors.Wrap(err, errors.ErrCodeGatewayBadResponse, "analysis failed").WithDetail("op=" + op)
	}
	if err := out.Check(); err != nil {
		g.observer.ObserveGateway(op, "bad_response", time.Since(start))
		return err
	}
	elapsed := time.Since(start)
	g.observer.ObserveGateway(op, "ok", elapsed)
	g.logger.Debug("gemini call completed", logging.String("op", op), logging.Duration("elapsed", elapsed))
	return nil
}

func requireInput(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New(errors.ErrCodeGatewayInputInvalid, field+" is required")
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
