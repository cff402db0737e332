package inventory

import (
	"errors"
	"time"
)

var (
	ErrItemNotFound = errors.New("inventory item not found")
	ErrSKUExists    = errors.New("sku already exists")
)

type Item struct {
	ID         int64     `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Stock      int       `json:"stock"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ItemPatch is a partial item update; nil fields are left untouched.
type ItemPatch struct {
	Name       *string `json:"name,omitempty"`
	Stock      *int    `json:"stock,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
}

// ReserveItem is one line of a reservation request.
type ReserveItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

// Shortage reports one SKU that blocked an all-or-nothing reservation.
type Shortage struct {
	SKU       string `json:"sku"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

const (
	reservationReserved = "RESERVED"
	reservationReleased = "RELEASED"
)
