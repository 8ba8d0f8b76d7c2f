package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/domain/report"
)

// Predictor runs the synchronous prediction calls that bypass the queue.
type Predictor interface {
	PredictReaction(ctx context.Context, r1, r2 string) (*report.ReactionPrediction, error)
	GenerateMolecule(ctx context.Context, brief string) (*report.GeneratedMolecule, error)
}

type ReactionRequest struct {
	Reactant1 string `json:"reactant1"`
	Reactant2 string `json:"reactant2"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

type PredictHandler struct {
	predictor Predictor
}

func NewPredictHandler(p Predictor) *PredictHandler {
	return &PredictHandler{predictor: p}
}

// PredictReaction handles POST /predict/reaction.
func (h *PredictHandler) PredictReaction(c *gin.Context) {
	var req ReactionRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.predictor.PredictReaction(c.Request.Context(), req.Reactant1, req.Reactant2)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GenerateMolecule handles POST /generate/molecule.
func (h *PredictHandler) GenerateMolecule(c *gin.Context) {
	var req GenerateRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.predictor.GenerateMolecule(c.Request.Context(), req.Prompt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
