package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/application/render"
	"github.com/turtacn/ChemXGen/internal/testutil"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	loads   int
}

func (m *mapCache) GetOrSet(ctx context.Context, key string, dest interface{}, _ time.Duration, loader func(context.Context) (interface{}, error)) error {
	m.mu.Lock()
	data, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		v, err := loader(ctx)
		if err != nil {
			return err
		}
		if data, err = json.Marshal(v); err != nil {
			return err
		}
		m.mu.Lock()
		m.entries[key] = data
		m.loads++
		m.mu.Unlock()
	}
	return json.Unmarshal(data, dest)
}

type renderCounts struct {
	mu     sync.Mutex
	states map[string]int
	hits   int
	misses int
}

func (r *renderCounts) RecordRender(mode, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[mode+":"+state]++
}

func (r *renderCounts) RecordCacheAccess(_ string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func renderRouter(cache RenderCache, obs RenderObserver) *gin.Engine {
	log := testutil.NewMockLogger()
	h := NewRenderHandler(render.NewRenderer(render.NewEngine(render.Options{}), log), cache, time.Minute, obs, log)
	r := newEngine(nil)
	r.POST("/render/2d", h.Render2D)
	r.POST("/render/3d", h.Render3D)
	return r
}

func TestRender2D_States(t *testing.T) {
	r := renderRouter(nil, nil)

	tests := []struct {
		name     string
		molecule string
		state    render.State
	}{
		{"valid smiles", "c1ccccc1", render.StateOK},
		{"empty", "", render.StateEmpty},
		{"garbage", "C1CC(", render.StateInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/render/2d", RenderRequest{Molecule: tt.molecule})
			require.Equal(t, http.StatusOK, w.Code)
			var res render.Result
			decode(t, w, &res)
			assert.Equal(t, tt.state, res.State)
			if tt.state == render.StateOK {
				assert.Contains(t, res.SVG, "<svg")
			}
		})
	}
}

func TestRender3D_Style(t *testing.T) {
	r := renderRouter(nil, nil)
	w := doJSON(t, r, http.MethodPost, "/render/3d", RenderRequest{Molecule: "CCO", Style: "sphere"})
	require.Equal(t, http.StatusOK, w.Code)
	var scene render.Scene
	decode(t, w, &scene)
	assert.Equal(t, render.StateOK, scene.State)
	assert.Equal(t, render.ParseStyle("sphere"), scene.Style)
	assert.Equal(t, 3, scene.AtomCount)
}

func TestRender_CachedAndObserved(t *testing.T) {
	cache := &mapCache{entries: map[string][]byte{}}
	obs := &renderCounts{states: map[string]int{}}
	r := renderRouter(cache, obs)

	for i := 0; i < 3; i++ {
		w := doJSON(t, r, http.MethodPost, "/render/2d", RenderRequest{Molecule: "CCO"})
		require.Equal(t, http.StatusOK, w.Code)
		var res render.Result
		decode(t, w, &res)
		assert.Equal(t, render.StateOK, res.State)
	}

	assert.Equal(t, 1, cache.loads)
	assert.Equal(t, 2, obs.hits)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 3, obs.states["2d:ok"])
}

func TestRender_BadBody(t *testing.T) {
	r := renderRouter(nil, nil)
	w := doJSON(t, r, http.MethodPost, "/render/2d", "[")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
