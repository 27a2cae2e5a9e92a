package core

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DataAccess is the remote catalog consumed by the console.
// Implementations normalize failures into NetworkError or DataShapeError.
type DataAccess interface {
	// ListProducts returns up to limit products starting at offset.
	// A result shorter than limit signals the end of the catalog.
	ListProducts(ctx context.Context, offset, limit int) ([]Product, error)

	// ListCategories returns the category reference data.
	ListCategories(ctx context.Context) ([]Category, error)

	// UpdateProduct replaces the editable fields of product id.
	UpdateProduct(ctx context.Context, id int, fields ProductFields) (Product, error)

	// CreateProduct creates a product; the server assigns the id.
	CreateProduct(ctx context.Context, fields ProductFields) (Product, error)
}

// Category is read-only reference data.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Product is a catalog record as returned by the remote API.
type Product struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug,omitempty"`
	Price       Amount    `json:"price"`
	Description string    `json:"description"`
	Category    *Category `json:"category,omitempty"`
	Images      []string  `json:"images"`
}

// CategoryName returns the category name or "" when the product has none.
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// CategoryID returns the category id or 0 when the product has none.
func (p Product) CategoryID() int {
	if p.Category == nil {
		return 0
	}
	return p.Category.ID
}

// ProductFields is the mutation payload for create and update.
type ProductFields struct {
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	CategoryID  int      `json:"categoryId"`
	Images      []string `json:"images"`
}

// Amount is a price. It decodes leniently: null, a missing value, a
// non-numeric string or a non-finite number all become 0.
type Amount float64

// Float returns the amount as float64.
func (a Amount) Float() float64 {
	return float64(a)
}

// String formats the amount in its shortest decimal form.
func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = 0

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(data)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*a = Amount(f)
	return nil
}

// SortField selects the projection ordering.
type SortField string

const (
	SortNone  SortField = ""
	SortTitle SortField = "title"
	SortPrice SortField = "price"
)

// ParseSortField converts user input to a SortField.
// Unknown values map to SortNone.
func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "title":
		return SortTitle
	case "price":
		return SortPrice
	default:
		return SortNone
	}
}

// SortDir is the projection direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ParseSortDir converts user input to a SortDir, defaulting to ascending.
func ParseSortDir(s string) SortDir {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return SortDesc
	}
	return SortAsc
}

// Flip returns the opposite direction.
func (d SortDir) Flip() SortDir {
	if d == SortDesc {
		return SortAsc
	}
	return SortDesc
}

// AlertLevel is the severity of a user-visible notice.
type AlertLevel string

const (
	AlertSuccess AlertLevel = "success"
	AlertInfo    AlertLevel = "info"
	AlertWarning AlertLevel = "warning"
	AlertDanger  AlertLevel = "danger"
)

// Alert is a dismissible notice for the user.
type Alert struct {
	Level   AlertLevel
	Message string
	Code    string // support code from MapError, empty for success notices
}

// Presenter receives the console's notifications. Calls happen while the
// console holds its state lock, so implementations must not call back into
// the Console.
type Presenter interface {
	OnProjectionChanged(items []Product)
	OnValidationFailed(flow Flow, field, message string)
	OnSubmitStateChanged(flow Flow, state SubmitState)
	OnAlert(alert Alert)
}

// NopPresenter discards every notification.
type NopPresenter struct{}

func (NopPresenter) OnProjectionChanged([]Product)           {}
func (NopPresenter) OnValidationFailed(Flow, string, string) {}
func (NopPresenter) OnSubmitStateChanged(Flow, SubmitState)  {}
func (NopPresenter) OnAlert(Alert)                           {}
