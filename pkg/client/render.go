package client

import (
	"context"

	"github.com/turtacn/ChemXGen/internal/application/render"
)

type (
	RenderResult = render.Result
	Scene        = render.Scene
)

type renderRequest struct {
	Molecule string `json:"molecule"`
	Style    string `json:"style,omitempty"`
}

// Render2D draws s as SVG. Unparseable input is not an error; check State.
func (c *Client) Render2D(ctx context.Context, s string) (*RenderResult, error) {
	var out RenderResult
	if err := c.post(ctx, "/render/2d", renderRequest{Molecule: s}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Render3D builds a 3D scene in style ("stick", "sphere" or "line").
func (c *Client) Render3D(ctx context.Context, s, style string) (*Scene, error) {
	var out Scene
	if err := c.post(ctx, "/render/3d", renderRequest{Molecule: s, Style: style}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
