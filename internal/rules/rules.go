// Package rules evaluates whether a product is compatible with a user's
// declared health conditions.
//
// Conditions are matched against an explicit rule table (see [Table]).
// Conditions not present in the table are skipped, so profiles may list
// conditions this version does not handle yet without breaking evaluation.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
	"github.com/sahtech/sahtech-ai-agent/internal/profile"
)

// Verdict is the outcome of a compatibility evaluation. Suitable is false
// exactly when Issues is non-empty.
type Verdict struct {
	Suitable bool     `json:"suitable"`
	Issues   []string `json:"issues"`
}

// Kind selects the check a rule performs.
type Kind int

const (
	// KindIngredient flags the product when Token appears (case-insensitively)
	// in any ingredient.
	KindIngredient Kind = iota

	// KindNutrientCeiling flags the product when the named nutrient exceeds
	// Limit. A missing nutrient value counts as zero.
	KindNutrientCeiling

	// KindNutrientFloor flags the product when the named nutrient is missing
	// or falls below Limit.
	KindNutrientFloor
)

// Rule describes how one recognized condition is checked.
type Rule struct {
	Kind     Kind
	Token    string  // ingredient substring, for KindIngredient
	Nutrient string  // nutrition_values key, for the nutrient kinds
	Limit    float64 // threshold, for the nutrient kinds
	Unit     string  // unit suffix stripped before parsing the value

	// Issue is reported when the rule triggers. MissingIssue is reported by
	// KindNutrientFloor when the nutrient is absent entirely.
	Issue        string
	MissingIssue string
}

// Table maps recognized condition identifiers (lowercase) to their rules.
// Adding a condition means adding an entry here; the evaluation engine
// does not change.
var Table = map[string]Rule{
	"milk allergy": {
		Kind:  KindIngredient,
		Token: "milk",
		Issue: "Product contains milk, dangerous for users with milk allergy.",
	},
	"diabetes": {
		Kind:     KindNutrientCeiling,
		Nutrient: "sugar",
		Limit:    5,
		Unit:     "g",
		Issue:    "Product has high sugar content, not suitable for users with diabetes.",
	},
	"celiac disease": {
		Kind:  KindIngredient,
		Token: "gluten",
		Issue: "Product contains gluten, dangerous for users with celiac disease.",
	},
	"iron deficiency anemia": {
		Kind:         KindNutrientFloor,
		Nutrient:     "iron",
		Limit:        2,
		Unit:         "mg",
		Issue:        "Product is low in iron, not suitable for users with iron deficiency anemia.",
		MissingIssue: "Product does not provide iron information; may not be suitable for users with iron deficiency anemia.",
	},
}

// Evaluate checks every recognized condition in the profile against the
// product and returns a fresh Verdict. It never panics: unreadable nutrient
// values become issues and evaluation continues with the remaining
// conditions.
func Evaluate(prof *profile.Profile, prod *catalog.Product) *Verdict {
	v := &Verdict{Suitable: true, Issues: []string{}}

	for _, disease := range prof.Diseases {
		condition := strings.ToLower(strings.TrimSpace(disease))
		rule, ok := Table[condition]
		if !ok {
			continue
		}
		for _, issue := range rule.check(condition, prod) {
			v.Suitable = false
			v.Issues = append(v.Issues, issue)
		}
	}

	return v
}

// check applies one rule to a product and returns any issues found.
func (r Rule) check(condition string, prod *catalog.Product) []string {
	switch r.Kind {
	case KindIngredient:
		for _, ing := range prod.Ingredients {
			if strings.Contains(strings.ToLower(ing), r.Token) {
				return []string{r.Issue}
			}
		}
		return nil

	case KindNutrientCeiling:
		raw, ok := prod.NutritionValues[r.Nutrient]
		if !ok {
			// No declared value: nothing to flag.
			return nil
		}
		value, err := parseAmount(raw, r.Unit)
		if err != nil {
			return []string{unreadableIssue(r.Nutrient, raw, condition)}
		}
		if value > r.Limit {
			return []string{r.Issue}
		}
		return nil

	case KindNutrientFloor:
		raw, ok := prod.NutritionValues[r.Nutrient]
		if !ok {
			return []string{r.MissingIssue}
		}
		value, err := parseAmount(raw, r.Unit)
		if err != nil {
			return []string{unreadableIssue(r.Nutrient, raw, condition)}
		}
		if value < r.Limit {
			return []string{r.Issue}
		}
		return nil
	}

	return nil
}

// parseAmount converts a nutrition value like "3.5g" or "2 mg" to a float,
// stripping the expected unit suffix case-insensitively.
func parseAmount(raw, unit string) (float64, error) {
	s := strings.TrimSpace(raw)
	if unit != "" {
		lower := strings.ToLower(s)
		if strings.HasSuffix(lower, strings.ToLower(unit)) {
			s = strings.TrimSpace(s[:len(s)-len(unit)])
		}
	}
	return strconv.ParseFloat(s, 64)
}

func unreadableIssue(nutrient, raw, condition string) string {
	return fmt.Sprintf("Could not read %s value %q while checking %s.", nutrient, raw, condition)
}
