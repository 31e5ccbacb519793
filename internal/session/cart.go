package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Guest cart: a Redis hash of listing id -> quantity next to the session data.

func (st *Store) CartItems(ctx context.Context, s *Session) (map[uint]int, error) {
	raw, err := st.rdb.HGetAll(ctx, st.cartKey(s.id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load guest cart: %w", err)
	}

	items := make(map[uint]int, len(raw))
	for field, value := range raw {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}
		items[uint(id)] = qty
	}
	return items, nil
}

// CartItem ignores stored quantities below 1, like CartItems.
func (st *Store) CartItem(ctx context.Context, s *Session, listingID uint) (int, bool, error) {
	qty, err := st.rdb.HGet(ctx, st.cartKey(s.id), cartField(listingID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("load guest cart item: %w", err)
	}
	if qty <= 0 {
		return 0, false, nil
	}
	return qty, true, nil
}

// SetCartItem stores an absolute quantity for listingID.
func (st *Store) SetCartItem(ctx context.Context, s *Session, listingID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("save guest cart item: invalid quantity %d", qty)
	}
	key := st.cartKey(s.id)
	pipe := st.rdb.TxPipeline()
	pipe.HSet(ctx, key, cartField(listingID), qty)
	pipe.Expire(ctx, key, st.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save guest cart item: %w", err)
	}
	return nil
}

// RemoveCartItem reports whether the line existed.
func (st *Store) RemoveCartItem(ctx context.Context, s *Session, listingID uint) (bool, error) {
	n, err := st.rdb.HDel(ctx, st.cartKey(s.id), cartField(listingID)).Result()
	if err != nil {
		return false, fmt.Errorf("remove guest cart item: %w", err)
	}
	return n > 0, nil
}

func (st *Store) ClearCart(ctx context.Context, s *Session) error {
	if err := st.rdb.Del(ctx, st.cartKey(s.id)).Err(); err != nil {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	return nil
}

func cartField(listingID uint) string {
	return strconv.FormatUint(uint64(listingID), 10)
}
