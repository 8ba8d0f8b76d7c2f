package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/turtacn/ChemXGen/internal/application/project"
	"github.com/turtacn/ChemXGen/internal/domain/project"
)

type ProjectService interface {
	List(ctx context.Context, f app.Filter) ([]*project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, error)
	ListByUser(ctx context.Context, userID string) ([]*project.Project, error)
}

type ProjectHandler struct {
	projects ProjectService
}

func NewProjectHandler(svc ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: svc}
}

// List handles GET /projects?tag=&q=.
func (h *ProjectHandler) List(c *gin.Context) {
	ps, err := h.projects.List(c.Request.Context(), app.Filter{
		Tag:    project.Tag(c.Query("tag")),
		Search: c.Query("q"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": ps})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListByUser handles GET /users/:id/projects.
func (h *ProjectHandler) ListByUser(c *gin.Context) {
	ps, err := h.projects.ListByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": ps})
}
