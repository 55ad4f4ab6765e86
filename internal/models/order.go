package models

import (
	"time"
)

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderTypePickup is the only order type this deployment takes
const OrderTypePickup = "pickup"

var knownStatuses = map[OrderStatus]bool{
	OrderStatusPending:   true,
	OrderStatusConfirmed: true,
	OrderStatusPreparing: true,
	OrderStatusReady:     true,
	OrderStatusCompleted: true,
	OrderStatusCancelled: true,
}

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	return knownStatuses[s]
}

// Terminal reports whether no further transition is expected from s
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Order is one customer request taken over the phone
type Order struct {
	ID          uint            `gorm:"primary_key"`
	OrderNumber string          `gorm:"column:order_number;index;not null"`
	PhoneNumber string          `gorm:"column:phone_number;not null"`
	Status      OrderStatus     `gorm:"default:'pending'"`
	OrderType   string          `gorm:"column:order_type;default:'pickup'"`
	Total       float64
	Notes       string          `gorm:"type:text"`
	CreatedAt   time.Time       `gorm:"index"`
	UpdatedAt   time.Time
	Items       []OrderLineItem `gorm:"foreignkey:OrderID"`
}

// OrderLineItem is one item within an order. MenuItemID is a lookup key only;
// the name, size and prices are snapshots taken at submission time.
type OrderLineItem struct {
	ID         uint    `gorm:"primary_key"`
	OrderID    uint    `gorm:"column:order_id;index;not null"`
	MenuItemID *uint   `gorm:"column:menu_item_id"`
	ItemName   string  `gorm:"column:item_name;not null"`
	Quantity   int     `gorm:"default:1"`
	Size       *string
	UnitPrice  float64 `gorm:"column:unit_price;not null"`
	Total      float64 `gorm:"not null"`
	Notes      string  `gorm:"type:text"`
	Position   int
	CreatedAt  time.Time
}

// TableName keeps the line item table name stable
func (OrderLineItem) TableName() string {
	return "order_items"
}
