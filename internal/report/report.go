// Package report formats human-readable product summaries.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
)

// Format returns a multi-line text summary of the product's identity,
// ingredients, additives, nutrition values, and scores. Nutrition values
// are sorted by name so the output is stable.
func Format(p *catalog.Product) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Product: %s (%s)\n", p.Name, p.Brand)
	fmt.Fprintf(&b, "Category: %s\n", p.Category)
	fmt.Fprintf(&b, "Ingredients: %s\n", joinOrNone(p.Ingredients))
	fmt.Fprintf(&b, "Additives: %s\n", joinOrNone(p.Additives))

	keys := make([]string, 0, len(p.NutritionValues))
	for k := range p.NutritionValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %s", k, p.NutritionValues[k]))
	}
	fmt.Fprintf(&b, "Nutrition values: %s\n", joinOrNone(pairs))

	fmt.Fprintf(&b, "Nutri-Score: %s\n", orNA(p.NutriScore))
	fmt.Fprintf(&b, "Eco-Score: %s", orNA(p.EcoScore))

	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
