package prompts

import (
	"fmt"
	"strings"

	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
	"github.com/sahtech/sahtech-ai-agent/internal/profile"
)

// Recommendation markers the service scans for when deriving the
// recommendation category from the model's answer.
const (
	MarkerRecommended = "✅ Recommended"
	MarkerCaution     = "⚠️ Consume with caution"
	MarkerAvoid       = "❌ Avoid"
)

// Recommendation builds the system prompt for the one-shot recommendation
// endpoint: a full description of the product and the user, plus the
// response format the category scanner depends on.
func Recommendation(prof *profile.Profile, prod *catalog.Product) string {
	var b strings.Builder

	b.WriteString("You are a nutrition expert AI assistant. Your task is to analyze a food product and provide a personalized recommendation based on a user's health profile.\n\n")

	b.WriteString("Product information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", prod.Name)
	fmt.Fprintf(&b, "- Brand: %s\n", prod.Brand)
	fmt.Fprintf(&b, "- Category: %s\n", prod.Category)
	fmt.Fprintf(&b, "- Ingredients: %s\n", joinOrNone(prod.Ingredients))
	fmt.Fprintf(&b, "- Additives: %s\n", joinOrNone(prod.Additives))
	fmt.Fprintf(&b, "- Nutrition values: %s\n", nutritionSummary(prod.NutritionValues))
	fmt.Fprintf(&b, "- Nutri-Score: %s\n", orNA(prod.NutriScore))
	fmt.Fprintf(&b, "- Eco-Score: %s\n\n", orNA(prod.EcoScore))

	b.WriteString("User health profile:\n")
	fmt.Fprintf(&b, "- Age: %d\n", prof.Age)
	fmt.Fprintf(&b, "- Height: %s\n", orNAFloat(prof.Height))
	fmt.Fprintf(&b, "- Weight: %s\n", orNAFloat(prof.Weight))
	fmt.Fprintf(&b, "- Health conditions: %s\n", joinOrNone(prof.Diseases))
	fmt.Fprintf(&b, "- Dietary preferences: %s\n", joinOrNone(prof.DietaryPreferences))
	fmt.Fprintf(&b, "- Activity level: %s\n", orNA(prof.ActivityLevel))
	fmt.Fprintf(&b, "- Goal: %s\n\n", orNA(prof.Goal))

	b.WriteString("Based on this information, analyze the compatibility of this product with the user's health profile. Consider allergies, health conditions, dietary preferences, and nutritional needs.\n\n")
	b.WriteString("Provide a personalized recommendation in the following format:\n")
	fmt.Fprintf(&b, "1. Start with one of these indicators: %q, %q, or %q\n", MarkerRecommended, MarkerCaution, MarkerAvoid)
	b.WriteString("2. Follow with a detailed explanation (2-3 sentences) of why this recommendation is given\n")
	b.WriteString("3. Include specific health implications based on the user's profile\n")
	b.WriteString("4. Provide alternative suggestions if the product is not recommended\n\n")
	b.WriteString("Your response should be clear, concise, and focused on the health implications.")

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orNAFloat(f float64) string {
	if f == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%g", f)
}
