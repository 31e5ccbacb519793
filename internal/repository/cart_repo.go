package repository

import (
	"context"
	"fmt"
	"sort"

	"marketplace/internal/model"
	"marketplace/internal/session"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartLine is one listing in a cart, whatever the storage.
type CartLine struct {
	ListingID uint
	Quantity  int
}

// CartRepository stores the lines of one cart. Quantities passed to Save are
// absolute; business rules live in the service layer.
type CartRepository interface {
	Lines(ctx context.Context) ([]CartLine, error)
	Line(ctx context.Context, listingID uint) (qty int, found bool, err error)
	Save(ctx context.Context, listingID uint, qty int) error
	Delete(ctx context.Context, listingID uint) (found bool, err error)
	Clear(ctx context.Context) error
}

// CartRepositories picks the storage for a session: the database for
// authenticated users, the session namespace for guests.
type CartRepositories struct {
	db    *gorm.DB
	store *session.Store
}

func NewCartRepositories(db *gorm.DB, store *session.Store) *CartRepositories {
	return &CartRepositories{db: db, store: store}
}

func (r *CartRepositories) For(sess *session.Session) CartRepository {
	if sess.IsAuthenticated() {
		return r.Database(sess.UserID())
	}
	return r.Session(sess)
}

func (r *CartRepositories) Database(userID uint) *DatabaseCartRepository {
	return &DatabaseCartRepository{db: r.db, userID: userID}
}

func (r *CartRepositories) Session(sess *session.Session) *SessionCartRepository {
	return &SessionCartRepository{store: r.store, sess: sess}
}

// DatabaseCartRepository keeps an authenticated user's cart in the cart table.
type DatabaseCartRepository struct {
	db     *gorm.DB
	userID uint
}

func (r *DatabaseCartRepository) Lines(ctx context.Context) ([]CartLine, error) {
	var items []model.CartItem
	if err := GetDB(ctx, r.db).
		Where("user_id = ?", r.userID).
		Order("listing_id asc").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, CartLine{ListingID: it.ListingID, Quantity: it.Quantity})
	}
	return lines, nil
}

func (r *DatabaseCartRepository) Line(ctx context.Context, listingID uint) (int, bool, error) {
	var items []model.CartItem
	if err := forUpdate(ctx, GetDB(ctx, r.db)).
		Where("user_id = ? AND listing_id = ?", r.userID, listingID).
		Limit(1).
		Find(&items).Error; err != nil {
		return 0, false, fmt.Errorf("load cart line: %w", err)
	}
	if len(items) == 0 {
		return 0, false, nil
	}
	return items[0].Quantity, true, nil
}

func (r *DatabaseCartRepository) Save(ctx context.Context, listingID uint, qty int) error {
	item := model.CartItem{UserID: r.userID, ListingID: listingID, Quantity: qty}
	err := GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "listing_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(&item).Error
	if err != nil {
		return fmt.Errorf("save cart line: %w", err)
	}
	return nil
}

func (r *DatabaseCartRepository) Delete(ctx context.Context, listingID uint) (bool, error) {
	res := GetDB(ctx, r.db).
		Where("user_id = ? AND listing_id = ?", r.userID, listingID).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return false, fmt.Errorf("delete cart line: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *DatabaseCartRepository) Clear(ctx context.Context) error {
	if err := GetDB(ctx, r.db).Where("user_id = ?", r.userID).Delete(&model.CartItem{}).Error; err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// SessionCartRepository keeps a guest cart in the session's Redis namespace.
type SessionCartRepository struct {
	store *session.Store
	sess  *session.Session
}

func (r *SessionCartRepository) Lines(ctx context.Context) ([]CartLine, error) {
	items, err := r.store.CartItems(ctx, r.sess)
	if err != nil {
		return nil, err
	}

	lines := make([]CartLine, 0, len(items))
	for id, qty := range items {
		lines = append(lines, CartLine{ListingID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ListingID < lines[j].ListingID })
	return lines, nil
}

func (r *SessionCartRepository) Line(ctx context.Context, listingID uint) (int, bool, error) {
	return r.store.CartItem(ctx, r.sess, listingID)
}

func (r *SessionCartRepository) Save(ctx context.Context, listingID uint, qty int) error {
	return r.store.SetCartItem(ctx, r.sess, listingID, qty)
}

func (r *SessionCartRepository) Delete(ctx context.Context, listingID uint) (bool, error) {
	return r.store.RemoveCartItem(ctx, r.sess, listingID)
}

func (r *SessionCartRepository) Clear(ctx context.Context) error {
	return r.store.ClearCart(ctx, r.sess)
}
