// Package currency parses typed amounts and renders them for display.
//
// Parsing keeps only the digits of the input, so any separators or symbols a
// user types are discarded while the numeric value is preserved. Formatting
// produces locale grouping and decimal separators, and the output parses back
// to the same value.
package currency

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Unit selects how the digits of an input are interpreted.
type Unit int

const (
	// Whole reads digits as whole currency units: "250" is 250.
	Whole Unit = iota
	// Cents reads digits as hundredths: "250" is 2.50.
	Cents
)

func (u Unit) String() string {
	switch u {
	case Whole:
		return "whole"
	case Cents:
		return "cents"
	default:
		return "unknown"
	}
}

// ParseUnit maps a config value to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "whole":
		return Whole, nil
	case "cents":
		return Cents, nil
	default:
		return Whole, fmt.Errorf("unknown currency unit %q", s)
	}
}

// maxDigits keeps parsed amounts exactly representable as float64.
const maxDigits = 15

// ErrTooLarge is returned for inputs with more significant digits than an
// amount can hold exactly.
var ErrTooLarge = errors.New("amount too large")

// Digits returns the ASCII digits of raw in order.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse strips every non-digit character and converts the rest according to
// unit. Input without digits is zero. Inputs longer than the exact float64
// range fail with ErrTooLarge rather than losing digits.
func Parse(raw string, unit Unit) (float64, error) {
	digits := strings.TrimLeft(Digits(raw), "0")
	if digits == "" {
		return 0, nil
	}
	if len(digits) > maxDigits {
		return 0, fmt.Errorf("%d digits: %w", len(digits), ErrTooLarge)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	if unit == Cents {
		return float64(n) / 100, nil
	}
	return float64(n), nil
}

// Formatter renders amounts for one locale and currency symbol.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// NewFormatter builds a Formatter for locale (a BCP 47 tag such as "pt-BR").
// An empty symbol is derived from the locale's region currency.
func NewFormatter(locale, symbol string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	p := message.NewPrinter(tag)
	if strings.TrimSpace(symbol) == "" {
		if unit, conf := currency.FromTag(tag); conf != language.No {
			symbol = p.Sprint(currency.Symbol(unit))
		}
	}
	return &Formatter{printer: p, symbol: strings.TrimSpace(symbol)}, nil
}

// MustFormatter is NewFormatter for known-good locales.
func MustFormatter(locale, symbol string) *Formatter {
	f, err := NewFormatter(locale, symbol)
	if err != nil {
		panic(err)
	}
	return f
}

// Symbol returns the currency symbol prefix.
func (f *Formatter) Symbol() string {
	return f.symbol
}

// Format renders v with the locale separators. Whole amounts have no
// decimals so that the rendered digits parse back to v.
func (f *Formatter) Format(v float64, unit Unit) string {
	scale := 0
	if unit == Cents {
		scale = 2
	}
	amount := f.printer.Sprint(number.Decimal(v, number.Scale(scale)))
	if f.symbol == "" {
		return amount
	}
	return f.symbol + " " + amount
}

// Reformat parses raw under unit and renders the result. Empty or zero input
// renders as the empty string so an input field can show its placeholder.
// Parse errors are returned unchanged and the caller keeps its previous text.
func (f *Formatter) Reformat(raw string, unit Unit) (float64, string, error) {
	v, err := Parse(raw, unit)
	if err != nil {
		return 0, "", err
	}
	if v == 0 {
		return 0, "", nil
	}
	return v, f.Format(v, unit), nil
}
