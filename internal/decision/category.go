// Package decision implements the StockPruner heuristics of §4.5: category
// detection, cadence calculation, timing classification, and the pruning
// precedence ladder. The optional LLM batch reviewer and its blend step live
// in internal/llmreview.
package decision

import "strings"

// Category is a household-stock category with a default restock cadence.
type Category struct {
	Name          string
	DefaultCadenceDays int
}

var (
	CategoryLaundry    = Category{Name: "LAUNDRY", DefaultCadenceDays: 45}
	CategoryCleaning   = Category{Name: "CLEANING", DefaultCadenceDays: 30}
	CategoryDairy      = Category{Name: "DAIRY", DefaultCadenceDays: 7}
	CategoryProduce    = Category{Name: "PRODUCE", DefaultCadenceDays: 5}
	CategoryHygiene    = Category{Name: "HYGIENE", DefaultCadenceDays: 30}
	CategoryBeverages  = Category{Name: "BEVERAGES", DefaultCadenceDays: 14}
	CategoryPantry     = Category{Name: "PANTRY", DefaultCadenceDays: 60}
	CategoryUnknown    = Category{Name: "UNKNOWN", DefaultCadenceDays: 30}
)

// categoryRule is one priority-ordered keyword->category mapping. Order
// matters: laundry is checked before cleaning so "Detergente" (ambiguous
// between the two) resolves to laundry, per §4.5.
type categoryRule struct {
	category Category
	keywords []string
}

var categoryTable = []categoryRule{
	{CategoryLaundry, []string{"detergente roupa", "amaciador", "detergente", "lixivia"}},
	{CategoryCleaning, []string{"lava-loica", "multiusos", "limpa-vidros", "desinfetante", "lixivia casa"}},
	{CategoryDairy, []string{"leite", "iogurte", "queijo", "manteiga"}},
	{CategoryProduce, []string{"alface", "tomate", "banana", "maca", "cenoura"}},
	{CategoryHygiene, []string{"champo", "gel de banho", "pasta de dentes", "papel higienico"}},
	{CategoryBeverages, []string{"agua", "sumo", "refrigerante", "cerveja", "vinho"}},
	{CategoryPantry, []string{"arroz", "massa", "farinha", "acucar", "azeite"}},
}

// DetectCategory implements §4.5's category detector: a static
// keyword->category table with priority ordering. Multiple keyword matches
// within the winning category boost confidence monotonically; no match
// classifies UNKNOWN at low confidence.
func DetectCategory(productName string) (Category, float64) {
	needle := strings.ToLower(productName)

	for _, rule := range categoryTable {
		matches := 0
		for _, kw := range rule.keywords {
			if strings.Contains(needle, kw) {
				matches++
			}
		}
		if matches > 0 {
			confidence := 0.6 + 0.1*float64(matches-1)
			if confidence > 0.95 {
				confidence = 0.95
			}
			return rule.category, confidence
		}
	}

	return CategoryUnknown, 0.2
}
