package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"marketplace/internal/config"
	"marketplace/internal/model"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/repository"
	"marketplace/internal/session"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EventCartUpdated is pushed to the owner's websocket channel after every change.
const EventCartUpdated = "cart.updated"

// MaxCartQuantity caps the quantity of a single cart line.
const MaxCartQuantity = 99

var errCartLineLimit = fmt.Sprintf("You can have at most %d of this item in your cart", MaxCartQuantity)

// CartSummary is what every cart endpoint reports back.
type CartSummary struct {
	CartCount int    `json:"cart_count"`
	CartTotal string `json:"cart_total"`
}

type CartItemResponse struct {
	ListingID uint   `json:"listing_id"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	Stock     int    `json:"stock"`
	Available bool   `json:"available"`
}

type CartView struct {
	Items []CartItemResponse `json:"items"`
	CartSummary
}

// EventPublisher delivers events to websocket subscribers.
type EventPublisher interface {
	Publish(channel, event string, data any)
}

type CartOptions struct {
	ZeroStockPolicy string
}

// CartService applies the cart rules on top of whichever CartRepository the
// session maps to.
type CartService interface {
	Add(ctx context.Context, sess *session.Session, listingID uint, qty int) (*CartSummary, error)
	Update(ctx context.Context, sess *session.Session, listingID uint, qty int) (*CartSummary, error)
	Remove(ctx context.Context, sess *session.Session, listingID uint) (*CartSummary, error)
	Clear(ctx context.Context, sess *session.Session) (*CartSummary, error)
	Count(ctx context.Context, sess *session.Session) (int, error)
	Total(ctx context.Context, sess *session.Session) (decimal.Decimal, error)
	Summary(ctx context.Context, sess *session.Session) (*CartSummary, error)
	Items(ctx context.Context, sess *session.Session) (*CartView, error)
	MergeGuestCart(ctx context.Context, sess *session.Session, userID uint) error
}

type cartService struct {
	repos     *repository.CartRepositories
	listings  repository.ListingRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	publisher EventPublisher
	logger    *slog.Logger
	opts      CartOptions
}

// NewCartService returns a CartService. publisher may be nil.
func NewCartService(
	repos *repository.CartRepositories,
	listings repository.ListingRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	publisher EventPublisher,
	logger *slog.Logger,
	opts CartOptions,
) CartService {
	if opts.ZeroStockPolicy == "" {
		opts.ZeroStockPolicy = config.ZeroStockUnlimited
	}
	return &cartService{
		repos:     repos,
		listings:  listings,
		auditRepo: auditRepo,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
	}
}

func cartMode(sess *session.Session) string {
	if sess.IsAuthenticated() {
		return "user"
	}
	return "guest"
}

func (s *cartService) Add(ctx context.Context, sess *session.Session, listingID uint, qty int) (*CartSummary, error) {
	if qty < 1 {
		return s.fail(ctx, sess, "add", validationError("Quantity must be at least 1"))
	}
	if qty > MaxCartQuantity {
		return s.fail(ctx, sess, "add", validationError(errCartLineLimit))
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		listing, err := s.sellableListing(txCtx, sess, listingID)
		if err != nil {
			return err
		}

		repo := s.repos.For(sess)
		existing, _, err := repo.Line(txCtx, listingID)
		if err != nil {
			return persistenceError(err)
		}
		if qty > MaxCartQuantity-existing {
			return validationError(errCartLineLimit)
		}
		newQty := existing + qty
		if err := s.checkStock(listing, newQty); err != nil {
			return err
		}
		if err := repo.Save(txCtx, listingID, newQty); err != nil {
			return persistenceError(err)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, sess, "add", err)
	}
	return s.succeed(ctx, sess, "add")
}

// Update sets the quantity of an existing line. A quantity of zero or less removes it.
func (s *cartService) Update(ctx context.Context, sess *session.Session, listingID uint, qty int) (*CartSummary, error) {
	if qty > MaxCartQuantity {
		return s.fail(ctx, sess, "update", validationError(errCartLineLimit))
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		repo := s.repos.For(sess)
		_, found, err := repo.Line(txCtx, listingID)
		if err != nil {
			return persistenceError(err)
		}
		if !found {
			return notFoundError("Item not found in cart")
		}

		if qty <= 0 {
			if _, err := repo.Delete(txCtx, listingID); err != nil {
				return persistenceError(err)
			}
			return nil
		}

		listing, err := s.sellableListing(txCtx, sess, listingID)
		if err != nil {
			return err
		}
		if err := s.checkStock(listing, qty); err != nil {
			return err
		}
		if err := repo.Save(txCtx, listingID, qty); err != nil {
			return persistenceError(err)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, sess, "update", err)
	}
	return s.succeed(ctx, sess, "update")
}

func (s *cartService) Remove(ctx context.Context, sess *session.Session, listingID uint) (*CartSummary, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.repos.For(sess).Delete(txCtx, listingID)
		if err != nil {
			return persistenceError(err)
		}
		if !found {
			return notFoundError("Item not found in cart")
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, sess, "remove", err)
	}
	return s.succeed(ctx, sess, "remove")
}

func (s *cartService) Clear(ctx context.Context, sess *session.Session) (*CartSummary, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repos.For(sess).Clear(txCtx); err != nil {
			return persistenceError(err)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, sess, "clear", err)
	}
	return s.succeed(ctx, sess, "clear")
}

// Count returns the number of distinct listings in the cart.
func (s *cartService) Count(ctx context.Context, sess *session.Session) (int, error) {
	lines, err := s.repos.For(sess).Lines(ctx)
	if err != nil {
		return 0, persistenceError(err)
	}
	return len(lines), nil
}

// Total prices every line at the listing's current price.
func (s *cartService) Total(ctx context.Context, sess *session.Session) (decimal.Decimal, error) {
	lines, err := s.repos.For(sess).Lines(ctx)
	if err != nil {
		return decimal.Zero, persistenceError(err)
	}
	listings, err := s.listingsFor(ctx, lines)
	if err != nil {
		return decimal.Zero, err
	}
	return sumLines(lines, listings), nil
}

func (s *cartService) Summary(ctx context.Context, sess *session.Session) (*CartSummary, error) {
	lines, err := s.repos.For(sess).Lines(ctx)
	if err != nil {
		return nil, persistenceError(err)
	}
	listings, err := s.listingsFor(ctx, lines)
	if err != nil {
		return nil, err
	}
	return &CartSummary{
		CartCount: len(lines),
		CartTotal: sumLines(lines, listings).StringFixed(2),
	}, nil
}

func (s *cartService) Items(ctx context.Context, sess *session.Session) (*CartView, error) {
	lines, err := s.repos.For(sess).Lines(ctx)
	if err != nil {
		return nil, persistenceError(err)
	}
	listings, err := s.listingsFor(ctx, lines)
	if err != nil {
		return nil, err
	}

	view := &CartView{Items: make([]CartItemResponse, 0, len(lines))}
	for _, line := range lines {
		item := CartItemResponse{ListingID: line.ListingID, Quantity: line.Quantity, UnitPrice: "0.00", Subtotal: "0.00"}
		if l, ok := listings[line.ListingID]; ok {
			item.Title = l.Title
			item.Image = l.MainImage()
			item.UnitPrice = l.Price.StringFixed(2)
			item.Subtotal = l.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).StringFixed(2)
			item.Stock = l.Quantity
			item.Available = l.IsActive && l.Status == model.ListingStatusActive
		}
		view.Items = append(view.Items, item)
	}
	view.CartCount = len(lines)
	view.CartTotal = sumLines(lines, listings).StringFixed(2)
	return view, nil
}

// MergeGuestCart folds the session's guest cart into the user's database cart.
// Quantities add up and are clamped to stock and MaxCartQuantity; listings that can no longer be
// bought are dropped. The guest cart is emptied afterwards.
func (s *cartService) MergeGuestCart(ctx context.Context, sess *session.Session, userID uint) error {
	guest := s.repos.Session(sess)
	lines, err := guest.Lines(ctx)
	if err != nil {
		return persistenceError(err)
	}
	if len(lines) == 0 {
		return nil
	}

	target := s.repos.Database(userID)
	merged := make(map[string]int, len(lines))
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, line := range lines {
			listing, err := s.listings.FindByIDForUpdate(txCtx, line.ListingID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return persistenceError(err)
			}
			if !listing.IsActive || listing.Status != model.ListingStatusActive || listing.SellerID == userID {
				continue
			}
			if listing.Quantity == 0 && s.opts.ZeroStockPolicy == config.ZeroStockSoldOut {
				continue
			}

			existing, _, err := target.Line(txCtx, line.ListingID)
			if err != nil {
				return persistenceError(err)
			}
			qty := MaxCartQuantity
			if line.Quantity < MaxCartQuantity-existing {
				qty = existing + line.Quantity
			}
			if listing.Quantity > 0 && qty > listing.Quantity {
				qty = listing.Quantity
			}
			if qty <= existing {
				continue
			}
			if err := target.Save(txCtx, line.ListingID, qty); err != nil {
				return persistenceError(err)
			}
			merged[strconv.FormatUint(uint64(line.ListingID), 10)] = qty
		}
		return nil
	})
	if err != nil {
		metrics.CartOperations.WithLabelValues("merge", "user", "error").Inc()
		return err
	}

	if err := guest.Clear(ctx); err != nil {
		s.logger.Error("clear guest cart after merge", "user_id", userID, "error", err)
	}
	metrics.CartOperations.WithLabelValues("merge", "user", "ok").Inc()

	if s.auditRepo != nil {
		details, _ := json.Marshal(map[string]any{"guest_lines": len(lines), "merged": merged})
		entry := &model.AuditLog{UserID: &userID, Action: model.ActionCartMerge, Details: string(details)}
		if err := s.auditRepo.Log(ctx, entry); err != nil {
			s.logger.Error("failed to write audit log", "action", model.ActionCartMerge, "error", err)
		}
	}
	return nil
}

// sellableListing loads and locks a listing and checks it may go into the cart.
func (s *cartService) sellableListing(ctx context.Context, sess *session.Session, listingID uint) (*model.Listing, error) {
	listing, err := s.listings.FindByIDForUpdate(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("Listing not found")
		}
		return nil, persistenceError(err)
	}
	if !listing.IsActive {
		return nil, notFoundError("Listing not found")
	}
	if listing.Status != model.ListingStatusActive {
		return nil, &Error{Kind: ErrUnavailable, Message: "This listing is no longer available"}
	}
	if sess.IsAuthenticated() && listing.SellerID == sess.UserID() {
		return nil, validationError("You cannot add your own listing to the cart")
	}
	return listing, nil
}

// checkStock validates a requested absolute quantity against the listing stock.
func (s *cartService) checkStock(listing *model.Listing, qty int) error {
	if listing.Quantity == 0 {
		if s.opts.ZeroStockPolicy == config.ZeroStockSoldOut {
			return &Error{Kind: ErrUnavailable, Message: "This listing is sold out"}
		}
		return nil
	}
	if qty > listing.Quantity {
		return &Error{Kind: ErrStock, Message: fmt.Sprintf("Only %d available for this listing", listing.Quantity)}
	}
	return nil
}

func (s *cartService) listingsFor(ctx context.Context, lines []repository.CartLine) (map[uint]*model.Listing, error) {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ListingID)
	}
	listings, err := s.listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, persistenceError(err)
	}
	return listings, nil
}

func sumLines(lines []repository.CartLine, listings map[uint]*model.Listing) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		l, ok := listings[line.ListingID]
		if !ok {
			continue
		}
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func (s *cartService) succeed(ctx context.Context, sess *session.Session, op string) (*CartSummary, error) {
	metrics.CartOperations.WithLabelValues(op, cartMode(sess), "ok").Inc()
	summary, err := s.Summary(ctx, sess)
	if err != nil {
		return &CartSummary{CartTotal: "0.00"}, err
	}
	if s.publisher != nil {
		s.publisher.Publish(sess.Channel(), EventCartUpdated, summary)
	}
	return summary, nil
}

// fail returns the unchanged cart state next to err.
func (s *cartService) fail(ctx context.Context, sess *session.Session, op string, err error) (*CartSummary, error) {
	var se *Error
	if !errors.As(err, &se) {
		err = persistenceError(err)
	}
	metrics.CartOperations.WithLabelValues(op, cartMode(sess), "error").Inc()

	summary, sumErr := s.Summary(ctx, sess)
	if sumErr != nil {
		return &CartSummary{CartTotal: "0.00"}, err
	}
	return summary, err
}
