package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"marketplace/internal/middleware"
	"marketplace/internal/model"
	"marketplace/internal/service"
	"marketplace/pkg/pagination"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

const defaultCatalogLimit = 50

type ListingHandler struct {
	listingService service.ListingService
	logger         *slog.Logger
}

func NewListingHandler(listingService service.ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{listingService: listingService, logger: logger}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *ListingHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/listings", h.ListListings)
	router.GET("/listings/:id", h.GetListing)
	router.GET("/categories", h.Categories)
	router.GET("/cities", h.Cities)
	router.GET("/account/listings", middleware.RequireUserType(model.UserTypeSeller), h.SellerListings)
}

// ListListings returns active listings, newest first
// @Summary      List listings
// @Tags         listings
// @Produce      json
// @Param        category_id  query     int     false  "Category"
// @Param        city         query     string  false  "City"
// @Param        province     query     string  false  "Province"
// @Param        q            query     string  false  "Title search"
// @Param        page         query     int     false  "Page"   default(1)
// @Param        limit        query     int     false  "Limit"  default(20)
// @Success      200          {object}  response.Response{data=pagination.Page}
// @Router       /listings [get]
func (h *ListingHandler) ListListings(c *gin.Context) {
	var q service.ListingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, bindingMessage(err)))
		return
	}

	p := pagination.Parse(c)
	items, total, err := h.listingService.ListListings(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.NewPage(items, total)))
}

// GetListing returns one listing
// @Summary      Get listing
// @Tags         listings
// @Produce      json
// @Param        id   path      int  true  "Listing ID"
// @Success      200  {object}  response.Response{data=service.ListingResponse}
// @Failure      404  {object}  response.Response
// @Router       /listings/{id} [get]
func (h *ListingHandler) GetListing(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid listing id"))
		return
	}

	listing, err := h.listingService.GetListing(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, listing))
}

// SellerListings returns the logged-in seller's listings in every status
// @Summary      My listings
// @Tags         listings
// @Produce      json
// @Param        page   query     int  false  "Page"   default(1)
// @Param        limit  query     int  false  "Limit"  default(20)
// @Success      200    {object}  response.Response{data=pagination.Page}
// @Failure      401    {object}  response.Response
// @Failure      403    {object}  response.Response
// @Router       /account/listings [get]
func (h *ListingHandler) SellerListings(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	p := pagination.Parse(c)
	items, total, err := h.listingService.SellerListings(c.Request.Context(), sess.UserID(), p.Page, p.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.NewPage(items, total)))
}

// Categories returns active categories in display order
// @Summary      List categories
// @Tags         listings
// @Produce      json
// @Param        limit  query     int  false  "Limit"  default(50)
// @Success      200    {object}  response.Response{data=[]model.Category}
// @Router       /categories [get]
func (h *ListingHandler) Categories(c *gin.Context) {
	categories, err := h.listingService.Categories(c.Request.Context(), catalogLimit(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// Cities returns cities in display order
// @Summary      List cities
// @Tags         listings
// @Produce      json
// @Param        limit  query     int  false  "Limit"  default(50)
// @Success      200    {object}  response.Response{data=[]model.City}
// @Router       /cities [get]
func (h *ListingHandler) Cities(c *gin.Context) {
	cities, err := h.listingService.Cities(c.Request.Context(), catalogLimit(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cities))
}

func catalogLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultCatalogLimit)))
	if err != nil || limit <= 0 || limit > pagination.MaxLimit {
		return defaultCatalogLimit
	}
	return limit
}
