package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/application/render"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
)

// RenderCache memoises renders by molecule hash.
type RenderCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// RenderObserver counts renders and cache lookups.
type RenderObserver interface {
	RecordRender(mode, state string)
	RecordCacheAccess(cache string, hit bool)
}

type RenderRequest struct {
	Molecule string `json:"molecule"`
	Style    string `json:"style,omitempty"`
}

type RenderHandler struct {
	renderer *render.Renderer
	cache    RenderCache
	ttl      time.Duration
	observer RenderObserver
	logger   logging.Logger
}

// NewRenderHandler creates the handler. cache and observer may be nil.
func NewRenderHandler(r *render.Renderer, cache RenderCache, ttl time.Duration, observer RenderObserver, logger logging.Logger) *RenderHandler {
	return &RenderHandler{renderer: r, cache: cache, ttl: ttl, observer: observer, logger: logger}
}

// Render2D handles POST /render/2d. Placeholder states are answered with 200.
func (h *RenderHandler) Render2D(c *gin.Context) {
	var req RenderRequest
	if !bindJSON(c, &req) {
		return
	}
	var res render.Result
	h.cached(c.Request.Context(), "2d:"+digest(req.Molecule), &res, func() interface{} {
		return h.renderer.Render2D(req.Molecule)
	})
	h.observe("2d", string(res.State))
	c.JSON(http.StatusOK, res)
}

// Render3D handles POST /render/3d.
func (h *RenderHandler) Render3D(c *gin.Context) {
	var req RenderRequest
	if !bindJSON(c, &req) {
		return
	}
	style := render.ParseStyle(req.Style)
	var scene render.Scene
	h.cached(c.Request.Context(), "3d:"+string(style)+":"+digest(req.Molecule), &scene, func() interface{} {
		return h.renderer.Render3D(req.Molecule, style)
	})
	h.observe("3d", string(scene.State))
	c.JSON(http.StatusOK, scene)
}

// cached fills dest from the cache or from compute. Cache failures fall
// back to computing in place.
func (h *RenderHandler) cached(ctx context.Context, key string, dest interface{}, compute func() interface{}) {
	if h.cache == nil {
		assign(dest, compute())
		return
	}
	hit := true
	err := h.cache.GetOrSet(ctx, key, dest, h.ttl, func(context.Context) (interface{}, error) {
		hit = false
		return compute(), nil
	})
	if err != nil {
		h.logger.Warn("Render cache unavailable", logging.String("key", key), logging.Err(err))
		assign(dest, compute())
		return
	}
	if h.observer != nil {
		h.observer.RecordCacheAccess("render", hit)
	}
}

func (h *RenderHandler) observe(mode, state string) {
	if h.observer != nil {
		h.observer.RecordRender(mode, state)
	}
}

func assign(dest, v interface{}) {
	switch d := dest.(type) {
	case *render.Result:
		*d = v.(render.Result)
	case *render.Scene:
		*d = v.(render.Scene)
	}
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}
