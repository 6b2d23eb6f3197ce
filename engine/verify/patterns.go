package verify

import "regexp"

// Nutrient keys used throughout the verifier. Order matters for deterministic
// reporting and correction.
var nutrients = []string{"calories", "protein", "carbs", "fat"}

// claimPatterns holds, per nutrient, an ordered list of extraction patterns.
// The first pattern that matches wins; group 1 is always the numeric token.
var claimPatterns = map[string][]*regexp.Regexp{
	"calories": {
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:kcal|calories?|cal)`),
	},
	"protein": {
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:g|grams?)\s*(?:of\s+)?protein`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*protein`),
	},
	"carbs": {
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:g|grams?)\s*(?:of\s+)?(?:carbs|carbohydrates?)`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:carbs|carbohydrates?)`),
	},
	"fat": {
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:g|grams?)\s*(?:of\s+)?fat`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*fat`),
	},
}
