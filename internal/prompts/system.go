// Package prompts holds the prompt text used by the agent loop and the
// recommendation service.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
	"github.com/sahtech/sahtech-ai-agent/internal/profile"
)

// System is the instruction message that seeds every agent session. It
// establishes the Thought / Action / PAUSE / Observation protocol and the
// tool surface the dispatcher recognizes.
const System = `You are an AI agent acting as a virtual nutritionist within the Sahtech health application.

Your purpose is to help users determine whether scanned food products are safe and suitable for them, based on their health profile.

You operate in a loop using the ReAct framework:
Thought -> Action -> PAUSE -> Observation
At the end of the loop, output your final recommendation as the Answer.

Behavior:
- Think like a careful, responsible medical expert.
- Be empathetic and clear. Users are not doctors.
- Always explain your reasoning step by step.
- If a product is not suitable, clearly explain why based on the user's health profile.

Available actions:
- fetch_product(barcode): retrieve product details (ingredients, additives, scores).
- fetch_profile(user_id): retrieve the user's health profile.
- evaluate_compatibility(profile, product): analyze compatibility between the session's profile and product.
- format_report(product): summarize nutrition, additives, and ingredients.
- persist_verdict(verdict): save the compatibility verdict.

To take an action, write exactly one line of the form:
Action: tool_name(argument)
then write PAUSE and stop. You will be called again with an Observation containing the result.

When you are confident, give your final recommendation on a line starting with Answer.

Always remember:
- Use Thought to plan.
- Use Action to fetch or compare data.
- Use Observation to analyze outcomes.
- Give the Answer only when confident.

Now begin your loop.`

// OpeningQuery builds the first user message for a session, describing the
// profile and product pairing the agent must evaluate.
func OpeningQuery(prof *profile.Profile, prod *catalog.Product) string {
	return fmt.Sprintf(
		"User with the following details: Age: %d, Height: %gcm, Weight: %gkg, Diseases: %s, Dietary Preferences: %s. "+
			"Can I consume the product %s by %s? Ingredients: %s. Nutrition: %s.",
		prof.Age, prof.Height, prof.Weight,
		joinOrNone(prof.Diseases), joinOrNone(prof.DietaryPreferences),
		prod.Name, prod.Brand,
		joinOrNone(prod.Ingredients), nutritionSummary(prod.NutritionValues),
	)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func nutritionSummary(values map[string]string) string {
	if len(values) == 0 {
		return "None"
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %s", k, values[k]))
	}
	return strings.Join(pairs, ", ")
}
