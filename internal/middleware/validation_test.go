package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type adjustRequest struct {
	Quantity  *int  `json:"quantity" validate:"required,gte=0"`
	Delivered *bool `json:"delivered" validate:"required"`
}

// Feature: stockboard, Property 22: Missing required fields are reported by JSON name
func TestProperty_RequiredFieldsReported(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("each missing field appears in the errors", prop.ForAll(
		func(withQuantity, withDelivered bool) bool {
			body := map[string]any{}
			if withQuantity {
				body["quantity"] = 3
			}
			if withDelivered {
				body["delivered"] = false
			}
			raw, _ := json.Marshal(body)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("PUT", "/test", bytes.NewReader(raw))

			var dst adjustRequest
			err := DecodeAndValidate(w, req, &dst)
			if withQuantity && withDelivered {
				return err == nil
			}

			fields := map[string]bool{}
			for _, fe := range FormatValidationErrors(err) {
				fields[fe.Field] = true
			}
			return fields["quantity"] == !withQuantity && fields["delivered"] == !withDelivered
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNegativeQuantityRejected(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/test", strings.NewReader(`{"quantity":-1,"delivered":true}`))

	var dst adjustRequest
	errs := FormatValidationErrors(DecodeAndValidate(w, req, &dst))
	if len(errs) != 1 {
		t.Fatalf("Expected one error, got %+v", errs)
	}
	if errs[0].Field != "quantity" || errs[0].Message != "Value must be greater than or equal to 0" {
		t.Errorf("Unexpected error %+v", errs[0])
	}
}

func TestMalformedBody(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/test", strings.NewReader(`{"quantity":`))

	var dst adjustRequest
	err := DecodeAndValidate(w, req, &dst)
	if !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("Expected ErrMalformedBody, got %v", err)
	}
	if FormatValidationErrors(err) != nil {
		t.Error("Decode errors should not be reported as field errors")
	}
}
