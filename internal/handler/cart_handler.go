package handler

import (
	"log/slog"
	"net/http"

	"marketplace/internal/middleware"
	"marketplace/internal/service"
	"marketplace/internal/session"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

type CartItemRequest struct {
	ListingID uint `json:"listing_id" form:"listing_id" binding:"required"`
	Quantity  *int `json:"quantity" form:"quantity" binding:"omitempty,min=0,max=99"`
}

type CartHandler struct {
	cartService service.CartService
	tokens      *session.TokenManager
	logger      *slog.Logger
}

// NewCartHandler sets up the routing dependencies for cart endpoints
func NewCartHandler(cartService service.CartService, tokens *session.TokenManager, logger *slog.Logger) *CartHandler {
	return &CartHandler{cartService: cartService, tokens: tokens, logger: logger}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup) {
	csrf := middleware.RequireCSRF(h.tokens, session.PurposeCart, h.logger, h.rejectCSRF)

	cart := router.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.GET("/count", h.Count)
		cart.POST("/add", csrf, h.Add)
		cart.POST("/update", csrf, h.Update)
		cart.POST("/remove", csrf, h.Remove)
		cart.POST("/clear", csrf, h.Clear)
	}
}

// currentCount is the cart count reported next to a failure.
func (h *CartHandler) currentCount(c *gin.Context, sess *session.Session) int {
	count, err := h.cartService.Count(c.Request.Context(), sess)
	if err != nil {
		h.logger.Error("count cart", "error", err)
		return 0
	}
	return count
}

func (h *CartHandler) rejectCSRF(c *gin.Context) {
	count := 0
	if sess := middleware.CurrentSession(c); sess != nil {
		count = h.currentCount(c, sess)
	}
	c.AbortWithStatusJSON(http.StatusForbidden,
		response.CartError("Invalid or expired security token. Please refresh the page and try again", count))
}

func (h *CartHandler) bind(c *gin.Context, sess *session.Session) (CartItemRequest, bool) {
	var req CartItemRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.CartError(bindingMessage(err), h.currentCount(c, sess)))
		return req, false
	}
	return req, true
}

// respond writes the cart envelope for the result of a mutation.
func (h *CartHandler) respond(c *gin.Context, message string, sum *service.CartSummary, err error) {
	count := 0
	if sum != nil {
		count = sum.CartCount
	}
	if err != nil {
		status := service.StatusCode(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("cart operation failed", "path", c.Request.URL.Path, "error", err)
		}
		c.JSON(status, response.CartError(service.PublicMessage(err), count))
		return
	}
	c.JSON(http.StatusOK, response.CartSuccess(message, count, sum.CartTotal))
}

// GetCart returns the cart lines priced at current listing prices
// @Summary      Get cart
// @Tags         cart
// @Produce      json
// @Success      200  {object}  response.Response{data=service.CartView}
// @Router       /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	view, err := h.cartService.Items(c.Request.Context(), sess)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// Count returns the number of distinct listings in the cart and the cart total
// @Summary      Cart count
// @Tags         cart
// @Produce      json
// @Success      200  {object}  response.CartResponse
// @Router       /cart/count [get]
func (h *CartHandler) Count(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	sum, err := h.cartService.Summary(c.Request.Context(), sess)
	h.respond(c, "", sum, err)
}

// Add puts a listing in the cart or increases its quantity
// @Summary      Add to cart
// @Description  Quantity defaults to 1. Requires a CSRF token of purpose "cart".
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-CSRF-Token  header    string           true  "CSRF token"
// @Param        payload       body      CartItemRequest  true  "Listing and quantity"
// @Success      200           {object}  response.CartResponse
// @Failure      400           {object}  response.CartResponse
// @Failure      403           {object}  response.CartResponse
// @Failure      404           {object}  response.CartResponse
// @Failure      409           {object}  response.CartResponse
// @Router       /cart/add [post]
func (h *CartHandler) Add(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	req, ok := h.bind(c, sess)
	if !ok {
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	sum, err := h.cartService.Add(c.Request.Context(), sess, req.ListingID, qty)
	h.respond(c, "Item added to cart", sum, err)
}

// Update sets the quantity of a cart line; zero removes it
// @Summary      Update cart line
// @Description  Requires a CSRF token of purpose "cart".
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-CSRF-Token  header    string           true  "CSRF token"
// @Param        payload       body      CartItemRequest  true  "Listing and quantity"
// @Success      200           {object}  response.CartResponse
// @Failure      400           {object}  response.CartResponse
// @Failure      404           {object}  response.CartResponse
// @Failure      409           {object}  response.CartResponse
// @Router       /cart/update [post]
func (h *CartHandler) Update(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	req, ok := h.bind(c, sess)
	if !ok {
		return
	}
	if req.Quantity == nil {
		c.JSON(http.StatusBadRequest, response.CartError("Quantity is required", h.currentCount(c, sess)))
		return
	}

	sum, err := h.cartService.Update(c.Request.Context(), sess, req.ListingID, *req.Quantity)
	h.respond(c, "Cart updated", sum, err)
}

// Remove deletes a cart line
// @Summary      Remove from cart
// @Description  Requires a CSRF token of purpose "cart".
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-CSRF-Token  header    string           true  "CSRF token"
// @Param        payload       body      CartItemRequest  true  "Listing"
// @Success      200           {object}  response.CartResponse
// @Failure      404           {object}  response.CartResponse
// @Router       /cart/remove [post]
func (h *CartHandler) Remove(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	req, ok := h.bind(c, sess)
	if !ok {
		return
	}

	sum, err := h.cartService.Remove(c.Request.Context(), sess, req.ListingID)
	h.respond(c, "Item removed from cart", sum, err)
}

// Clear empties the cart
// @Summary      Clear cart
// @Description  Requires a CSRF token of purpose "cart".
// @Tags         cart
// @Produce      json
// @Param        X-CSRF-Token  header    string  true  "CSRF token"
// @Success      200           {object}  response.CartResponse
// @Router       /cart/clear [post]
func (h *CartHandler) Clear(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	sum, err := h.cartService.Clear(c.Request.Context(), sess)
	h.respond(c, "Cart cleared", sum, err)
}
