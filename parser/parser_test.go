package parser

import (
	"testing"

	"github.com/aluiziolira/pricewatch/models"
)

func TestValidateProduct(t *testing.T) {
	tests := []struct {
		name    string
		product *models.ProductRecord
		wantErr bool
	}{
		{
			name:    "valid product",
			product: &models.ProductRecord{Title: "Flipper Zero", Price: models.MustPrice("169"), Rating: "4.6 out of 5 stars"},
			wantErr: false,
		},
		{
			name:    "valid without price",
			product: &models.ProductRecord{Title: "Flipper Zero"},
			wantErr: false,
		},
		{
			name:    "missing title",
			product: &models.ProductRecord{Title: "   ", Price: models.MustPrice("10")},
			wantErr: true,
		},
		{
			name:    "nil product",
			product: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProduct(tt.product)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProduct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name      string
		whole     string
		fraction  string
		wantValid bool
		want      string
	}{
		{name: "whole with trailing dot", whole: "169.", wantValid: true, want: "169"},
		{name: "whole and fraction", whole: "169.", fraction: "99", wantValid: true, want: "169.99"},
		{name: "thousands separator", whole: "1,299.", fraction: "00", wantValid: true, want: "1299"},
		{name: "currency symbol", whole: "$19.99", wantValid: true, want: "19.99"},
		{name: "pound symbol", whole: "£51.77", wantValid: true, want: "51.77"},
		{name: "zero is a price", whole: "0", wantValid: true, want: "0"},
		{name: "whitespace", whole: "  15.00  ", wantValid: true, want: "15"},
		{name: "empty", whole: "", wantValid: false},
		{name: "fraction only", whole: "", fraction: "99", wantValid: false},
		{name: "garbage", whole: "See options", wantValid: false},
		{name: "negative", whole: "-5", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.whole, tt.fraction)
			if got.Valid != tt.wantValid {
				t.Fatalf("ParsePrice(%q, %q).Valid = %v, want %v", tt.whole, tt.fraction, got.Valid, tt.wantValid)
			}
			if tt.wantValid && !got.Equal(models.MustPrice(tt.want)) {
				t.Errorf("ParsePrice(%q, %q) = %s, want %s", tt.whole, tt.fraction, got, tt.want)
			}
		})
	}
}

func TestNormalizeRating(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "with whitespace", input: "  4.5 out of 5 stars ", expected: "4.5 out of 5 stars"},
		{name: "empty string", input: "", expected: NoRating},
		{name: "blank string", input: "   ", expected: NoRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRating(tt.input); got != tt.expected {
				t.Errorf("NormalizeRating(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeTitleKeepsInnerWhitespace(t *testing.T) {
	if got := NormalizeTitle("  Flipper  Zero \n"); got != "Flipper  Zero" {
		t.Fatalf("NormalizeTitle = %q, want %q", got, "Flipper  Zero")
	}
}
