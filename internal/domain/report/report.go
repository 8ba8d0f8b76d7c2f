// Package report defines the typed results produced by the prediction
// gateway.  A completed task stores one of these, JSON encoded, as its result.
package report

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// SynthesisStep is one transformation inside a route.
type SynthesisStep struct {
	Step          int      `json:"step"`
	Description   string   `json:"description"`
	Reactants     []string `json:"reactants"`
	Reagents      string   `json:"reagents"`
	Product       string   `json:"product"`
	ProductSMILES string   `json:"product_smiles"`
}

// SynthesisRoute is a candidate retrosynthesis pathway.
type SynthesisRoute struct {
	RouteID    string          `json:"routeId"`
	Summary    string          `json:"summary"`
	Difficulty float64         `json:"difficulty"`
	Cost       string          `json:"cost"`
	Steps      []SynthesisStep `json:"steps"`
}

type SynthesisPlan struct {
	Target string           `json:"target"`
	Routes []SynthesisRoute `json:"routes"`
}

// Endpoint is a single predicted toxicological endpoint.
type Endpoint struct {
	Name  string `json:"name"`
	Pred  string `json:"pred"`
	Prob  string `json:"prob"`
	Alert string `json:"alert"`
}

type ToxicityReport struct {
	MoleculeName      string     `json:"moleculeName"`
	Summary           string     `json:"summary"`
	OralToxicity      string     `json:"oralToxicity"`
	DermalToxicity    string     `json:"dermalToxicity"`
	Carcinogenicity   string     `json:"carcinogenicity"`
	Mutagenicity      string     `json:"mutagenicity"`
	SafetyPrecautions []string   `json:"safetyPrecautions"`
	RiskScore         *float64   `json:"riskScore,omitempty"`
	Endpoints         []Endpoint `json:"endpoints,omitempty"`
}

type AbsorptionItem struct {
	Title      string  `json:"title"`
	Value      string  `json:"value"`
	Percentage float64 `json:"percentage"`
}

type RadarPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type PropertyReport struct {
	MolecularWeight      string           `json:"molecularWeight"`
	LogP                 float64          `json:"logP"`
	TPSA                 float64          `json:"tpsa"`
	HBondDonors          int              `json:"hBondDonors"`
	HBondAcceptors       int              `json:"hBondAcceptors"`
	RotatableBonds       int              `json:"rotatableBonds"`
	BioavailabilityScore float64          `json:"bioavailabilityScore"`
	Solubility           string           `json:"solubility"`
	Absorption           []AbsorptionItem `json:"absorption"`
	Radar                []RadarPoint     `json:"radar"`
}

// Lipinski counts Rule-of-5 violations from the reported descriptors.  The
// molecular weight is reported as free text ("180.16 g/mol") and is parsed
// leniently; an unparsable weight is not counted.
func (p *PropertyReport) Lipinski() int {
	v := 0
	if mw, ok := leadingFloat(p.MolecularWeight); ok && mw > 500 {
		v++
	}
	if p.LogP > 5 {
		v++
	}
	if p.HBondDonors > 5 {
		v++
	}
	if p.HBondAcceptors > 10 {
		v++
	}
	return v
}

type SimilarityHit struct {
	Name       string  `json:"name"`
	SMILES     string  `json:"smiles"`
	Similarity float64 `json:"similarity"`
	Source     string  `json:"source"`
}

type SimilarityReport struct {
	Query   string          `json:"query"`
	Summary string          `json:"summary"`
	Hits    []SimilarityHit `json:"hits"`
}

// ConditionSet is one set of reaction conditions.
type ConditionSet struct {
	Temperature   string  `json:"temperature"`
	Solvent       string  `json:"solvent"`
	Catalyst      string  `json:"catalyst"`
	Time          string  `json:"time"`
	ExpectedYield float64 `json:"expectedYield"`
}

type ConditionReport struct {
	Reaction     string         `json:"reaction"`
	Summary      string         `json:"summary"`
	Recommended  ConditionSet   `json:"recommended"`
	Alternatives []ConditionSet `json:"alternatives"`
}

type PredictedProduct struct {
	Molecule  string  `json:"molecule"`
	MolString string  `json:"mol_string"`
	Yield     float64 `json:"yield"`
}

type ReactionPrediction struct {
	Reactants       []string           `json:"reactants"`
	Products        []PredictedProduct `json:"products"`
	Conditions      string             `json:"conditions"`
	ConfidenceScore float64            `json:"confidenceScore"`
}

type GeneratedMolecule struct {
	Name      string `json:"name"`
	MolString string `json:"mol_string"`
}

// Checker is implemented by reports that can tell an unusable model response
// apart from a sparse one.
type Checker interface {
	Check() error
}

func (p *SynthesisPlan) Check() error {
	if len(p.Routes) == 0 {
		return errors.New(errors.ErrCodeGatewayBadResponse, "synthesis plan has no routes")
	}
	return nil
}

func (r *ToxicityReport) Check() error {
	if strings.TrimSpace(r.Summary) == "" && len(r.Endpoints) == 0 {
		return errors.New(errors.ErrCodeGatewayBadResponse, "toxicity report is empty")
	}
	return nil
}

func (p *PropertyReport) Check() error {
	if p.MolecularWeight == "" && len(p.Radar) == 0 {
		return errors.New(errors.ErrCodeGatewayBadResponse, "property report is empty")
	}
	return nil
}

func (s *SimilarityReport) Check() error {
	if s.Summary == "" && len(s.Hits) == 0 {
		return errors.New(errors.ErrCodeGatewayBadResponse, "similarity report is empty")
	}
	return nil
}

func (c *ConditionReport) Check() error {
	if c.Recommended == (ConditionSet{}) {
		return errors.New(errors.ErrCodeGatewayBadResponse, "condition report has no recommendation")
	}
	return nil
}

func (r *ReactionPrediction) Check() error {
	if len(r.Products) == 0 {
		return errors.New(errors.ErrCodeGatewayBadResponse, "reaction prediction has no products")
	}
	return nil
}

func (g *GeneratedMolecule) Check() error {
	if strings.TrimSpace(g.MolString) == "" {
		return errors.New(errors.ErrCodeGatewayBadResponse, "generated molecule has no structure")
	}
	return nil
}

// ForKind returns an empty report value matching the result of a task kind.
// Unknown kinds map to SynthesisPlan, mirroring task dispatch.
func ForKind(k task.Kind) Checker {
	switch k.Dispatch() {
	case task.KindToxicity:
		return &ToxicityReport{}
	case task.KindProperty:
		return &PropertyReport{}
	case task.KindSimilarity:
		return &SimilarityReport{}
	case task.KindConditions:
		return &ConditionReport{}
	default:
		return &SynthesisPlan{}
	}
}

// Decode parses the stored result of t into its typed report.
func Decode(t *task.Task) (Checker, error) {
	if t == nil || !t.HasResult() {
		return nil, errors.New(errors.ErrCodeNotFound, "task has no result")
	}
	r := ForKind(t.Type)
	if err := json.Unmarshal(t.Result, r); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode task result").
			WithDetail("id=" + t.ID)
	}
	return r, nil
}

func leadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	f, err := strconv.ParseFloat(strings.TrimRight(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
