package service

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"gorm.io/gorm"
)

type ListingResponse struct {
	ID            uint     `json:"id"`
	SellerID      uint     `json:"seller_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Price         string   `json:"price"`
	OriginalPrice *string  `json:"original_price,omitempty"`
	Quantity      int      `json:"quantity"`
	CategoryID    *uint    `json:"category_id,omitempty"`
	Category      string   `json:"category,omitempty"`
	Province      string   `json:"province"`
	City          string   `json:"city"`
	Status        string   `json:"status"`
	Images        []string `json:"images"`
	CreatedAt     string   `json:"created_at"`
}

type ListingQuery struct {
	CategoryID uint   `form:"category_id"`
	City       string `form:"city"`
	Province   string `form:"province"`
	Q          string `form:"q" binding:"max=100"`
}

// ListingService is the read side of the catalogue.
type ListingService interface {
	GetListing(ctx context.Context, id uint) (*ListingResponse, error)
	ListListings(ctx context.Context, query ListingQuery, page, limit int) ([]ListingResponse, int64, error)
	SellerListings(ctx context.Context, sellerID uint, page, limit int) ([]ListingResponse, int64, error)
	Categories(ctx context.Context, limit int) ([]model.Category, error)
	Cities(ctx context.Context, limit int) ([]model.City, error)
}

type listingService struct {
	listings repository.ListingRepository
	catalog  repository.CatalogRepository
}

func NewListingService(listings repository.ListingRepository, catalog repository.CatalogRepository) ListingService {
	return &listingService{listings: listings, catalog: catalog}
}

func mapListingResponse(l *model.Listing) ListingResponse {
	res := ListingResponse{
		ID:          l.ID,
		SellerID:    l.SellerID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price.StringFixed(2),
		Quantity:    l.Quantity,
		CategoryID:  l.CategoryID,
		Province:    l.Province,
		City:        l.City,
		Status:      l.Status,
		Images:      make([]string, 0, len(l.Images)),
		CreatedAt:   l.CreatedAt.Format(time.RFC3339),
	}
	if l.OriginalPrice.Valid {
		p := l.OriginalPrice.Decimal.StringFixed(2)
		res.OriginalPrice = &p
	}
	if l.Category != nil {
		res.Category = l.Category.Name
	}
	for _, img := range l.Images {
		res.Images = append(res.Images, img.URL)
	}
	return res
}

func (s *listingService) GetListing(ctx context.Context, id uint) (*ListingResponse, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Listing not found")
		}
		return nil, persistenceError(err)
	}
	if !listing.IsActive {
		return nil, notFoundError("Listing not found")
	}
	res := mapListingResponse(listing)
	return &res, nil
}

func (s *listingService) ListListings(ctx context.Context, query ListingQuery, page, limit int) ([]ListingResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	filter := repository.ListingFilter{
		CategoryID: query.CategoryID,
		City:       query.City,
		Province:   query.Province,
		Query:      query.Q,
	}
	listings, total, err := s.listings.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, persistenceError(err)
	}

	return mapListings(listings), total, nil
}

// SellerListings returns the seller's own listings, including inactive and sold ones.
func (s *listingService) SellerListings(ctx context.Context, sellerID uint, page, limit int) ([]ListingResponse, int64, error) {
	if sellerID == 0 {
		return nil, 0, authError(loginRequiredMessage)
	}
	listings, total, err := s.listings.ListBySeller(ctx, sellerID, page, limit)
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	return mapListings(listings), total, nil
}

func mapListings(listings []model.Listing) []ListingResponse {
	res := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		res = append(res, mapListingResponse(&listings[i]))
	}
	return res
}

func (s *listingService) Categories(ctx context.Context, limit int) ([]model.Category, error) {
	categories, err := s.catalog.Categories(ctx, limit)
	if err != nil {
		return nil, persistenceError(err)
	}
	return categories, nil
}

func (s *listingService) Cities(ctx context.Context, limit int) ([]model.City, error) {
	cities, err := s.catalog.Cities(ctx, limit)
	if err != nil {
		return nil, persistenceError(err)
	}
	return cities, nil
}
