package service

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func validForm() ProductForm {
	return ProductForm{
		Name:         "Supra Frame",
		Category:     "car-frames",
		MRP:          "999",
		Price:        "799",
		Stock:        "4",
		Tags:         "jdm, frame",
		Description:  "A4 frame",
		DisplayImage: "https://cdn.example.com/supra.jpg",
		Enabled:      true,
	}
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return vErr.Message
}

func TestValidateAcceptsCompleteForm(t *testing.T) {
	if err := validForm().Validate(DefaultValidationOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *ProductForm)
		want   string
	}{
		{"empty name", func(f *ProductForm) { f.Name = "  " }, "Name is required"},
		{"no category", func(f *ProductForm) { f.Category = "" }, "Category is required"},
		{"mrp missing", func(f *ProductForm) { f.MRP = "" }, "MRP must be a valid positive number"},
		{"mrp zero", func(f *ProductForm) { f.MRP = "0" }, "MRP must be a valid positive number"},
		{"mrp not a number", func(f *ProductForm) { f.MRP = "NaN" }, "MRP must be a valid positive number"},
		{"price negative", func(f *ProductForm) { f.Price = "-5" }, "Price must be a valid positive number"},
		{"mrp below price", func(f *ProductForm) { f.MRP = "5"; f.Price = "10" }, "MRP must be greater than or equal to price"},
		{"stock negative", func(f *ProductForm) { f.Stock = "-1" }, "Stock must be a valid non-negative number"},
		{"stock fractional", func(f *ProductForm) { f.Stock = "2.5" }, "Stock must be a valid non-negative number"},
		{"stock empty", func(f *ProductForm) { f.Stock = "" }, "Stock must be a valid non-negative number"},
		{"tags blank", func(f *ProductForm) { f.Tags = " , ," }, "Tags must contain at least one value"},
		{"description blank", func(f *ProductForm) { f.Description = "\n" }, "Description is required"},
		{"no image", func(f *ProductForm) { f.DisplayImage = "" }, "Display image is required (upload a file or enter a URL)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)
			if got := validationMessage(t, form.Validate(DefaultValidationOptions())); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateReportsFirstFailure(t *testing.T) {
	form := ProductForm{MRP: "5", Price: "10"}

	if got := validationMessage(t, form.Validate(DefaultValidationOptions())); got != "Name is required" {
		t.Errorf("message = %q", got)
	}

	form.Name = "x"
	form.Category = "posters"
	if got := validationMessage(t, form.Validate(DefaultValidationOptions())); got != "MRP must be greater than or equal to price" {
		t.Errorf("message = %q", got)
	}
}

func TestValidateUploadedFileSatisfiesImage(t *testing.T) {
	form := validForm()
	form.DisplayImage = ""
	form.HasDisplayImageFile = true

	if err := form.Validate(DefaultValidationOptions()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateVariantWithoutCategoriesOrTags(t *testing.T) {
	form := validForm()
	form.Category = ""
	form.Tags = ""

	if err := form.Validate(ValidationOptions{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseTagsAndAlbum(t *testing.T) {
	tags := ParseTags(" a, b ,, c ")
	if len(tags) != 3 || tags[0] != "a" || tags[2] != "c" {
		t.Errorf("ParseTags = %v", tags)
	}

	album := ParseAlbum("https://x/1.jpg\r\n\n  https://x/2.jpg  \n")
	if len(album) != 2 || album[1] != "https://x/2.jpg" {
		t.Errorf("ParseAlbum = %v", album)
	}
}

// Feature: stockboard, Property 3: Price ordering is enforced
func TestProperty_MRPBelowPriceIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("mrp < price always yields the ordering message", prop.ForAll(
		func(price int, gap int) bool {
			form := validForm()
			form.Price = itoa(price + gap)
			form.MRP = itoa(price)
			var vErr *ValidationError
			err := form.Validate(DefaultValidationOptions())
			return errors.As(err, &vErr) && vErr.Message == "MRP must be greater than or equal to price"
		},
		gen.IntRange(1, 100000),
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
