package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/pricewatch/models"
	"github.com/shopspring/decimal"
)

// NoRating is recorded when a listing shows no rating element.
const NoRating = "No rating found"

var priceReplacer = strings.NewReplacer(
	",", "",
	"$", "",
	"£", "",
	"Â£", "",
	"€", "",
	" ", "",
	"\u00a0", "",
)

// ValidateProduct ensures the scraper captured a usable join key.
func ValidateProduct(p *models.ProductRecord) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("product missing title")
	}
	return nil
}

// NormalizeTitle trims surrounding whitespace. Inner whitespace is kept as-is
// because titles are compared byte for byte across runs.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// NormalizeRating trims the rating text and substitutes NoRating when empty.
func NormalizeRating(rating string) string {
	rating = strings.TrimSpace(rating)
	if rating == "" {
		return NoRating
	}
	return rating
}

// ParsePrice converts listing price text into a Price. The whole part may carry
// thousands separators, a currency symbol and a trailing decimal point; the
// fraction part is optional. Anything unparseable yields an absent price.
func ParsePrice(whole, fraction string) models.Price {
	whole = strings.TrimSpace(priceReplacer.Replace(whole))
	fraction = strings.TrimSpace(priceReplacer.Replace(fraction))
	if whole == "" {
		return models.NoPrice()
	}

	text := whole
	if fraction != "" {
		text = strings.TrimSuffix(whole, ".") + "." + strings.TrimPrefix(fraction, ".")
	}
	text = strings.TrimSuffix(text, ".")
	if text == "" || strings.HasPrefix(text, "-") {
		return models.NoPrice()
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return models.NoPrice()
	}
	return models.NewPrice(amount)
}
