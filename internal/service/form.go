package service

import (
	"strings"

	"stockboard/internal/domain"

	"github.com/shopspring/decimal"
)

// ValidationError carries the single message shown for a rejected form.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// ValidationOptions switches checks on for catalog variants that have
// categories or tags.
type ValidationOptions struct {
	RequireCategory bool
	RequireTags     bool
}

// DefaultValidationOptions enables every check.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{RequireCategory: true, RequireTags: true}
}

// ProductForm is the raw product editor input. Numbers stay strings until
// validation so malformed input can be reported with the right message.
type ProductForm struct {
	Name         string
	Category     string
	MRP          string
	Price        string
	Stock        string
	Tags         string
	Description  string
	DisplayImage string
	// Album holds one image URL per line.
	Album   string
	Enabled bool
	// HasDisplayImageFile is set when a display image file accompanies the form.
	HasDisplayImageFile bool
}

// Validate reports the first failing check, or nil.
func (f ProductForm) Validate(opts ValidationOptions) error {
	if strings.TrimSpace(f.Name) == "" {
		return invalid("Name is required")
	}
	if opts.RequireCategory && strings.TrimSpace(f.Category) == "" {
		return invalid("Category is required")
	}

	mrp, ok := parsePositive(f.MRP)
	if !ok {
		return invalid("MRP must be a valid positive number")
	}
	price, ok := parsePositive(f.Price)
	if !ok {
		return invalid("Price must be a valid positive number")
	}
	if mrp.LessThan(price) {
		return invalid("MRP must be greater than or equal to price")
	}

	if _, ok := parseStock(f.Stock); !ok {
		return invalid("Stock must be a valid non-negative number")
	}
	if opts.RequireTags && len(ParseTags(f.Tags)) == 0 {
		return invalid("Tags must contain at least one value")
	}
	if strings.TrimSpace(f.Description) == "" {
		return invalid("Description is required")
	}
	if strings.TrimSpace(f.DisplayImage) == "" && !f.HasDisplayImageFile {
		return invalid("Display image is required (upload a file or enter a URL)")
	}
	return nil
}

// product builds the product a validated form describes. displayImage and
// album are the final URLs after uploads.
func (f ProductForm) product(displayImage string, album []string) *domain.Product {
	mrp, _ := decimal.NewFromString(strings.TrimSpace(f.MRP))
	price, _ := decimal.NewFromString(strings.TrimSpace(f.Price))
	stock, _ := parseStock(f.Stock)

	return &domain.Product{
		Name:         f.Name,
		Description:  f.Description,
		Category:     domain.Category(strings.TrimSpace(f.Category)),
		MRP:          mrp,
		Price:        price,
		Stock:        stock,
		Enabled:      f.Enabled,
		DisplayImage: displayImage,
		Album:        album,
		Tags:         ParseTags(f.Tags),
	}
}

// ParseTags splits a comma separated list, trimming entries and dropping
// empty ones.
func ParseTags(raw string) []string {
	return splitNonEmpty(raw, ",")
}

// ParseAlbum splits one URL per line, trimming entries and dropping empty ones.
func ParseAlbum(raw string) []string {
	return splitNonEmpty(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
}

func splitNonEmpty(raw, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositive(raw string) (decimal.Decimal, bool) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !value.IsPositive() {
		return decimal.Zero, false
	}
	return value, true
}

func parseStock(raw string) (int, bool) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() || !value.IsInteger() || value.GreaterThan(decimal.NewFromInt(1<<31-1)) {
		return 0, false
	}
	return int(value.IntPart()), true
}
