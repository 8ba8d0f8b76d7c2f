package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/application/billing"
	"github.com/turtacn/ChemXGen/internal/domain/user"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/middleware"
)

type BillingService interface {
	Checkout(ctx context.Context, u *user.User, priceID string) (*billing.Redirect, error)
	Portal(ctx context.Context, u *user.User) (*billing.Redirect, error)
}

type CheckoutRequest struct {
	PriceID string `json:"priceId" binding:"required"`
}

type BillingHandler struct {
	billing BillingService
}

func NewBillingHandler(svc BillingService) *BillingHandler {
	return &BillingHandler{billing: svc}
}

// Checkout handles POST /billing/checkout. Requires a signed-in user.
func (h *BillingHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.billing.Checkout(c.Request.Context(), middleware.CurrentUser(c), req.PriceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Portal handles POST /billing/portal.
func (h *BillingHandler) Portal(c *gin.Context) {
	r, err := h.billing.Portal(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
