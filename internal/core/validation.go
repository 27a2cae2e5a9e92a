package core

// validation.go provides form validation shared by the edit and create flows.
//
// Rules run in a fixed order and the first failure wins, so the user is
// pointed at one field at a time:
//  1. title must be non-empty after trimming
//  2. price must be a finite number >= 0
//  3. description must be non-empty after trimming
//  4. categoryId must be an integer > 0
//  5. images must contain at least one non-blank line
//
// A passing FormInput is normalized into the ProductFields payload sent to
// the remote API.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Form field names, as used in ValidationError.Field and HTML forms.
const (
	FieldTitle       = "title"
	FieldPrice       = "price"
	FieldDescription = "description"
	FieldCategoryID  = "categoryId"
	FieldImages      = "images"
)

// FormInput is the raw text a user entered in the edit or create form.
type FormInput struct {
	Title       string
	Price       string
	Description string
	CategoryID  string
	Images      string // one URL per line
}

// ValidationError represents a rejected form field.
type ValidationError struct {
	Field   string // Form field name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationResult contains the result of validating a form.
type ValidationResult struct {
	Valid  bool             // True if every rule passed
	Err    *ValidationError // First failing rule (nil if Valid)
	Fields ProductFields    // Normalized payload (zero unless Valid)
}

// Validate checks a form and returns the normalized payload or the first
// failing rule.
func Validate(in FormInput) ValidationResult {
	fail := func(field, value, msg string) ValidationResult {
		return ValidationResult{Err: &ValidationError{Field: field, Value: value, Message: msg}}
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return fail(FieldTitle, in.Title, "title is required")
	}

	rawPrice := strings.TrimSpace(in.Price)
	price, err := strconv.ParseFloat(rawPrice, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return fail(FieldPrice, in.Price, "invalid price: must be a number >= 0")
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return fail(FieldDescription, in.Description, "description is required")
	}

	rawCat := strings.TrimSpace(in.CategoryID)
	catID, err := strconv.Atoi(rawCat)
	if err != nil || catID <= 0 {
		return fail(FieldCategoryID, in.CategoryID, "invalid category id: must be a whole number > 0")
	}

	images := ParseImages(in.Images)
	if len(images) == 0 {
		return fail(FieldImages, in.Images, "at least one image url is required")
	}

	return ValidationResult{
		Valid: true,
		Fields: ProductFields{
			Title:       title,
			Price:       price,
			Description: desc,
			CategoryID:  catID,
			Images:      images,
		},
	}
}

// ParseImages splits newline-separated URLs, trimming each line and
// dropping blank ones.
func ParseImages(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// FormFromProduct prefills the edit form from an existing record.
// A product without a category defaults to category 1.
func FormFromProduct(p Product) FormInput {
	catID := p.CategoryID()
	if catID == 0 {
		catID = 1
	}
	return FormInput{
		Title:       p.Title,
		Price:       p.Price.String(),
		Description: p.Description,
		CategoryID:  strconv.Itoa(catID),
		Images:      strings.Join(p.Images, "\n"),
	}
}

// DefaultCreateImage seeds the images field of a new product form.
const DefaultCreateImage = "https://placehold.co/600x400"

// NewProductForm returns the initial create form, preselecting the first
// known category (or 1 when none are known).
func NewProductForm(categories []Category) FormInput {
	catID := 1
	if len(categories) > 0 {
		catID = categories[0].ID
	}
	return FormInput{
		CategoryID: strconv.Itoa(catID),
		Images:     DefaultCreateImage,
	}
}
