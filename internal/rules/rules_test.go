package rules

import (
	"strings"
	"testing"

	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
	"github.com/sahtech/sahtech-ai-agent/internal/profile"
)

func testProfile(diseases ...string) *profile.Profile {
	return &profile.Profile{
		Age:      22,
		Height:   178,
		Weight:   90,
		Diseases: diseases,
	}
}

func testProduct(ingredients []string, nutrition map[string]string) *catalog.Product {
	return &catalog.Product{
		Name:            "Test Product",
		Brand:           "Test Brand",
		Category:        "Test",
		Ingredients:     ingredients,
		NutritionValues: nutrition,
	}
}

func TestEvaluate_MilkAllergy(t *testing.T) {
	tests := []struct {
		name        string
		ingredients []string
		suitable    bool
	}{
		{"milk present", []string{"Milk", "Lactic ferments"}, false},
		{"milk uppercase", []string{"MILK POWDER"}, false},
		{"milk embedded", []string{"Skimmed milk concentrate"}, false},
		{"no milk", []string{"Water", "Cocoa"}, true},
		{"empty ingredients", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(testProfile("milk allergy"), testProduct(tt.ingredients, nil))
			if v.Suitable != tt.suitable {
				t.Errorf("Suitable = %v, want %v (issues: %v)", v.Suitable, tt.suitable, v.Issues)
			}
			if v.Suitable != (len(v.Issues) == 0) {
				t.Errorf("invariant violated: Suitable=%v with %d issues", v.Suitable, len(v.Issues))
			}
		})
	}
}

func TestEvaluate_Diabetes(t *testing.T) {
	tests := []struct {
		name     string
		sugar    string
		suitable bool
	}{
		{"above threshold", "6g", false},
		{"well above threshold", "22.5g", false},
		{"at threshold", "5g", true},
		{"below threshold", "3.5g", true},
		{"spaced unit", "4.2 g", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(testProfile("diabetes"),
				testProduct(nil, map[string]string{"sugar": tt.sugar}))
			if v.Suitable != tt.suitable {
				t.Errorf("sugar %q: Suitable = %v, want %v (issues: %v)", tt.sugar, v.Suitable, tt.suitable, v.Issues)
			}
		})
	}
}

func TestEvaluate_Diabetes_MissingSugar(t *testing.T) {
	// No declared sugar value: the ceiling rule has nothing to flag.
	v := Evaluate(testProfile("diabetes"), testProduct(nil, map[string]string{"fat": "2g"}))
	if !v.Suitable {
		t.Errorf("missing sugar value should not trigger: issues %v", v.Issues)
	}
}

func TestEvaluate_Diabetes_UnreadableSugar(t *testing.T) {
	// A non-numeric value becomes an explicit issue, not a panic.
	v := Evaluate(testProfile("diabetes"),
		testProduct(nil, map[string]string{"sugar": "1.5% to 2.5%"}))
	if v.Suitable {
		t.Error("unreadable sugar value should surface as an issue")
	}
	if len(v.Issues) != 1 || !strings.Contains(v.Issues[0], "sugar") {
		t.Errorf("expected one sugar parse issue, got %v", v.Issues)
	}
}

func TestEvaluate_CeliacDisease(t *testing.T) {
	v := Evaluate(testProfile("celiac disease"),
		testProduct([]string{"Wheat flour (Gluten)", "Water"}, nil))
	if v.Suitable {
		t.Error("gluten ingredient should trigger the celiac rule")
	}

	v = Evaluate(testProfile("celiac disease"),
		testProduct([]string{"Rice", "Water"}, nil))
	if !v.Suitable {
		t.Errorf("gluten-free product flagged: %v", v.Issues)
	}
}

func TestEvaluate_IronDeficiency(t *testing.T) {
	tests := []struct {
		name      string
		nutrition map[string]string
		suitable  bool
		wantIssue string
	}{
		{"iron missing", map[string]string{"sugar": "3.5g"}, false, "does not provide iron information"},
		{"iron low", map[string]string{"iron": "1mg"}, false, "low in iron"},
		{"iron at threshold", map[string]string{"iron": "2mg"}, true, ""},
		{"iron sufficient", map[string]string{"iron": "3mg"}, true, ""},
		{"iron unreadable", map[string]string{"iron": "trace"}, false, "Could not read iron"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(testProfile("iron deficiency anemia"), testProduct(nil, tt.nutrition))
			if v.Suitable != tt.suitable {
				t.Fatalf("Suitable = %v, want %v (issues: %v)", v.Suitable, tt.suitable, v.Issues)
			}
			if tt.wantIssue != "" {
				if len(v.Issues) == 0 || !strings.Contains(v.Issues[0], tt.wantIssue) {
					t.Errorf("issues %v do not mention %q", v.Issues, tt.wantIssue)
				}
			}
		})
	}
}

func TestEvaluate_UnrecognizedConditionSkipped(t *testing.T) {
	v := Evaluate(testProfile("hypertension", "chronic fatigue"),
		testProduct([]string{"Milk"}, map[string]string{"sugar": "20g"}))
	if !v.Suitable {
		t.Errorf("unrecognized conditions must be skipped, got issues %v", v.Issues)
	}
}

func TestEvaluate_ConditionCaseAndWhitespace(t *testing.T) {
	v := Evaluate(testProfile("  Milk Allergy  "), testProduct([]string{"Milk"}, nil))
	if v.Suitable {
		t.Error("condition matching should be case-insensitive and trimmed")
	}
}

func TestEvaluate_MultipleConditionsAccumulate(t *testing.T) {
	v := Evaluate(testProfile("milk allergy", "diabetes", "iron deficiency anemia"),
		testProduct([]string{"Milk", "Sugar"}, map[string]string{"sugar": "12g"}))
	if v.Suitable {
		t.Fatal("expected unsuitable verdict")
	}
	// milk + sugar ceiling + missing iron
	if len(v.Issues) != 3 {
		t.Errorf("expected 3 accumulated issues, got %d: %v", len(v.Issues), v.Issues)
	}
}

func TestEvaluate_NoDiseases(t *testing.T) {
	v := Evaluate(testProfile(), testProduct([]string{"Milk"}, nil))
	if !v.Suitable || len(v.Issues) != 0 {
		t.Errorf("empty disease list must produce a clean verdict, got %+v", v)
	}
}

func TestEvaluate_EndToEndScenarios(t *testing.T) {
	// Milk-allergic user scanning a dairy product.
	v := Evaluate(testProfile("milk allergy"),
		testProduct([]string{"Milk", "Lactic ferments"}, nil))
	if v.Suitable {
		t.Fatal("dairy product must be unsuitable for milk allergy")
	}
	if !strings.Contains(strings.Join(v.Issues, " "), "milk allergy") {
		t.Errorf("issues should mention milk allergy: %v", v.Issues)
	}

	// Anemic user scanning a product with no iron declaration.
	v = Evaluate(testProfile("iron deficiency anemia"),
		testProduct([]string{"Cocoa"}, map[string]string{"sugar": "3.5g"}))
	if v.Suitable {
		t.Fatal("product without iron info must be unsuitable for anemia")
	}
	if !strings.Contains(strings.Join(v.Issues, " "), "iron information") {
		t.Errorf("issues should mention missing iron information: %v", v.Issues)
	}
}

func TestTable_RecognizedConditions(t *testing.T) {
	for _, condition := range []string{"milk allergy", "diabetes", "celiac disease", "iron deficiency anemia"} {
		if _, ok := Table[condition]; !ok {
			t.Errorf("condition %q missing from rule table", condition)
		}
	}
}
