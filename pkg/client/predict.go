package client

import (
	"context"

	"github.com/turtacn/ChemXGen/internal/domain/report"
)

type (
	ReactionPrediction = report.ReactionPrediction
	GeneratedMolecule  = report.GeneratedMolecule
)

func (c *Client) PredictReaction(ctx context.Context, reactant1, reactant2 string) (*ReactionPrediction, error) {
	var out ReactionPrediction
	body := map[string]string{"reactant1": reactant1, "reactant2": reactant2}
	if err := c.post(ctx, "/predict/reaction", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateMolecule(ctx context.Context, prompt string) (*GeneratedMolecule, error) {
	var out GeneratedMolecule
	if err := c.post(ctx, "/generate/molecule", map[string]string{"prompt": prompt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
