package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Cart lifecycle states. merged and converted are terminal, abandoned is
// reached by expiry and never mutated further.
const (
	CartStatusActive    = "active"
	CartStatusMerged    = "merged"
	CartStatusAbandoned = "abandoned"
	CartStatusConverted = "converted"
)

const (
	ItemStatusActive = "active"
	ItemStatusSaved  = "saved"
)

const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

// JSONMap is a jsonb-backed key/value column for variant selections
// such as width, drop and material.
type JSONMap map[string]string

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonmap: unsupported column type %T", src)
	}
	if len(data) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Merge returns a shallow merge of m and other, keys in other win.
func (m JSONMap) Merge(other JSONMap) JSONMap {
	out := make(JSONMap, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         string    `gorm:"not null;default:customer" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Category struct {
	ID            uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string         `gorm:"not null"                 json:"name"`
	Slug          string         `gorm:"uniqueIndex;not null"     json:"slug"`
	Description   string         `json:"description"`
	Image         string         `json:"image"`
	ParentID      *uint          `gorm:"index"                    json:"parentId"`
	IsActive      bool           `gorm:"not null;default:true"    json:"isActive"`
	DisplayOrder  int            `gorm:"not null;default:0"       json:"displayOrder"`
	Level         int            `gorm:"not null;default:0"       json:"level"`
	Path          string         `json:"path"`
	Subcategories []Category     `gorm:"foreignKey:ParentID"      json:"subcategories,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index"                    json:"-"`
}

type Product struct {
	ID            uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string         `gorm:"not null"                 json:"name"`
	Slug          string         `gorm:"uniqueIndex;not null"     json:"slug"`
	Description   string         `json:"description"`
	Price         float64        `gorm:"not null"                 json:"price"`
	StockQuantity uint           `gorm:"not null;default:0"       json:"stockQuantity"`
	CategoryID    *uint          `gorm:"index"                    json:"categoryId"`
	FeaturedImage string         `json:"featuredImage"`
	IsActive      bool           `gorm:"not null;default:true"    json:"isActive"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index"                    json:"-"`
}

// SpecificationTemplate describes one attribute the admin expects on
// products of a category, e.g. "width" in centimeters with preset options.
type SpecificationTemplate struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"                  json:"id"`
	CategoryID   uint      `gorm:"uniqueIndex:idx_category_key;not null"     json:"categoryId"`
	Key          string    `gorm:"uniqueIndex:idx_category_key;not null"     json:"key"`
	Name         string    `gorm:"not null"                                  json:"name"`
	Type         string    `gorm:"not null;default:text"                     json:"type"`
	Unit         string    `json:"unit"`
	Options      JSONMap   `gorm:"type:jsonb"                                json:"options"`
	Required     bool      `gorm:"not null;default:false"                    json:"required"`
	DisplayOrder int       `gorm:"not null;default:0"                        json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Coupon struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code            string    `gorm:"uniqueIndex;not null"     json:"code"`
	Type            string    `gorm:"not null"                 json:"type"`
	Value           float64   `gorm:"not null"                 json:"value"`
	MinimumPurchase float64   `gorm:"not null;default:0"       json:"minimumPurchase"`
	IsActive        bool      `gorm:"not null;default:true"    json:"isActive"`
	ExpiresAt       time.Time `gorm:"not null"                 json:"expiresAt"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Cart is owned by a registered user or by an anonymous session, never
// both for lookup purposes. A guest cart may be re-parented to a user at
// login, the reverse never happens.
type Cart struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"        json:"id"`
	UserID    *uint      `gorm:"index"                           json:"userId"`
	SessionID *string    `gorm:"index"                           json:"sessionId"`
	Status    string     `gorm:"not null;default:active;index"   json:"status"`
	ExpiresAt time.Time  `gorm:"not null"                        json:"expiresAt"`
	CouponID  *uint      `json:"couponId"`
	Discount  float64    `gorm:"not null;default:0"              json:"discount"`
	Items     []CartItem `gorm:"foreignKey:CartID"               json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (Cart) TableName() string {
	return "carts"
}

// CartItem snapshots the product price at add time; later catalog price
// changes do not touch existing lines.
type CartItem struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	CartID         uint      `gorm:"index;not null"                json:"cartId"`
	ProductID      uint      `gorm:"index;not null"                json:"productId"`
	Quantity       uint      `gorm:"not null;default:1;check:quantity>0" json:"quantity"`
	UnitPrice      float64   `gorm:"not null"                      json:"unitPrice"`
	Specifications JSONMap   `gorm:"type:jsonb"                    json:"specifications"`
	Status         string    `gorm:"not null;default:active"       json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
