// Package models defines data structures for Specula
package models

import (
	"fmt"
	"strings"
)

// Category classifies a position by its role in the portfolio.
type Category string

const (
	CategoryTrendSetter Category = "Trend_Setter"
	CategoryMoat        Category = "Moat"
	CategoryGrowth      Category = "Growth"
	CategoryBond        Category = "Bond"
	CategoryCash        Category = "Cash"
)

// Categories lists all valid categories in declaration order.
var Categories = []Category{
	CategoryTrendSetter,
	CategoryMoat,
	CategoryGrowth,
	CategoryBond,
	CategoryCash,
}

// ParseCategory normalizes a user-supplied category string.
func ParseCategory(s string) (Category, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	for _, c := range Categories {
		if strings.EqualFold(normalized, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// LiquidityRank orders categories for withdrawal: the most liquid and least
// conviction-bearing positions are sold first. Unknown categories sort last.
func (c Category) LiquidityRank() int {
	switch c {
	case CategoryCash:
		return 0
	case CategoryBond:
		return 1
	case CategoryGrowth:
		return 2
	case CategoryMoat:
		return 3
	case CategoryTrendSetter:
		return 4
	default:
		return 5
	}
}

// MoatEligible reports whether moat analysis applies to this category.
// Bonds and cash have no gross margin to track.
func (c Category) MoatEligible() bool {
	return c != CategoryBond && c != CategoryCash
}
