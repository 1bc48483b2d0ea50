package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is an optional exact amount. The zero value is an absent price,
// which is distinct from a present price of 0.
type Price struct {
	Amount decimal.Decimal
	Valid  bool
}

// NewPrice returns a present price.
func NewPrice(amount decimal.Decimal) Price {
	return Price{Amount: amount, Valid: true}
}

// MustPrice parses s into a present price and panics on malformed input.
func MustPrice(s string) Price {
	return NewPrice(decimal.RequireFromString(s))
}

// NoPrice returns an absent price.
func NoPrice() Price {
	return Price{}
}

// Equal reports whether both prices are absent, or both present with the same value.
func (p Price) Equal(other Price) bool {
	if p.Valid != other.Valid {
		return false
	}
	return !p.Valid || p.Amount.Equal(other.Amount)
}

func (p Price) String() string {
	if !p.Valid {
		return "<none>"
	}
	return p.Amount.String()
}

// MarshalJSON encodes a bare JSON number, or null when absent.
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return []byte(p.Amount.String()), nil
}

// UnmarshalJSON accepts null, a JSON number, or a quoted decimal string.
func (p *Price) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*p = Price{}
		return nil
	}
	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("decode price: %w", err)
	}
	*p = NewPrice(amount)
	return nil
}

// Scan implements sql.Scanner.
func (p *Price) Scan(value any) error {
	var nd decimal.NullDecimal
	if err := nd.Scan(value); err != nil {
		return fmt.Errorf("scan price: %w", err)
	}
	*p = Price{Amount: nd.Decimal, Valid: nd.Valid}
	return nil
}

// Value implements driver.Valuer. Present prices are stored as decimal text.
func (p Price) Value() (driver.Value, error) {
	if !p.Valid {
		return nil, nil
	}
	return p.Amount.String(), nil
}
