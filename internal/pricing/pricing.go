package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

type PackageKind string

const (
	KindUnknown        PackageKind = ""
	KindFullExperience PackageKind = "full experience"
	KindLiveSetup      PackageKind = "live setup"
)

// KindFromName maps a packages.name value to its pricing kind.
func KindFromName(name string) PackageKind {
	switch PackageKind(strings.ToLower(strings.TrimSpace(name))) {
	case KindFullExperience:
		return KindFullExperience
	case KindLiveSetup:
		return KindLiveSetup
	default:
		return KindUnknown
	}
}

// Selection is what the customer picked on the package step. Which counts are
// meaningful depends on Kind.
type Selection struct {
	Kind            PackageKind `json:"kind"`
	Guests          int         `json:"guests,omitempty"`
	ClassicPizzas   int         `json:"classicPizzas,omitempty"`
	SignaturePizzas int         `json:"signaturePizzas,omitempty"`
}

// TotalPizzas is the pizza count used by the live-setup range checks.
func (s Selection) TotalPizzas() int {
	return s.ClassicPizzas + s.SignaturePizzas
}

var (
	PricePerGuest = decimal.NewFromInt(1000)

	TierThreshold = 100

	ClassicPrice       = decimal.NewFromInt(300)
	ClassicBulkPrice   = decimal.NewFromInt(280)
	SignaturePrice     = decimal.NewFromInt(350)
	SignatureBulkPrice = decimal.NewFromInt(320)
)

type Line struct {
	Item      string          `json:"item"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Lines    []Line          `json:"lines"`
}

// Subtotal prices a selection. It never fails: unknown kinds and absent counts price at zero.
func Subtotal(sel Selection) decimal.Decimal {
	return Price(sel).Subtotal
}

// Price returns the subtotal together with the lines that make it up.
func Price(sel Selection) Quote {
	q := Quote{Subtotal: decimal.Zero, Lines: []Line{}}

	switch sel.Kind {
	case KindFullExperience:
		if sel.Guests > 0 {
			q.add("guests", sel.Guests, PricePerGuest)
		}
	case KindLiveSetup:
		if sel.ClassicPizzas > 0 {
			q.add("classic pizza", sel.ClassicPizzas, tiered(sel.ClassicPizzas, ClassicPrice, ClassicBulkPrice))
		}
		if sel.SignaturePizzas > 0 {
			q.add("signature pizza", sel.SignaturePizzas, tiered(sel.SignaturePizzas, SignaturePrice, SignatureBulkPrice))
		}
	}
	return q
}

func (q *Quote) add(item string, qty int, unit decimal.Decimal) {
	total := unit.Mul(decimal.NewFromInt(int64(qty)))
	q.Lines = append(q.Lines, Line{Item: item, Quantity: qty, UnitPrice: unit, Total: total})
	q.Subtotal = q.Subtotal.Add(total)
}

// tiered picks the bulk unit price once qty reaches the threshold (inclusive).
func tiered(qty int, regular, bulk decimal.Decimal) decimal.Decimal {
	if qty >= TierThreshold {
		return bulk
	}
	return regular
}
