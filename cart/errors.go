package cart

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCoupon = errors.New("invalid coupon code")
	ErrCouponApplied = errors.New("a coupon is already applied; remove it first")
	ErrInvalidFormat = errors.New("invalid cart backup format")
	ErrNoValidItems  = errors.New("backup contains no valid items")
	ErrStorageQuota  = errors.New("local cart store is out of space")
)

// MinimumNotMetError carries the threshold the cart must reach before the
// coupon can be applied, so the UI can tell the shopper how much is missing.
type MinimumNotMetError struct {
	Required float64
	Subtotal float64
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("cart subtotal %.2f is below the coupon minimum %.2f", e.Subtotal, e.Required)
}

// PersistStatus reports how a persistence attempt ended.
type PersistStatus int

const (
	// PersistOK: written to the intended tier.
	PersistOK PersistStatus = iota
	// PersistDegraded: remote tier failed, compressed copy landed locally.
	PersistDegraded
	// PersistFailed: both tiers failed; the mutation survives only in memory.
	PersistFailed
)

func (s PersistStatus) String() string {
	switch s {
	case PersistOK:
		return "ok"
	case PersistDegraded:
		return "degraded"
	case PersistFailed:
		return "failed"
	}
	return "unknown"
}
