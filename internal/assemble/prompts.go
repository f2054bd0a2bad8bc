// internal/assemble/prompts.go
package assemble

import (
	"fmt"
)

// Mode names one field-group extraction prompt. The name appears in logs so
// a failed group can be diagnosed after the fact.
type Mode string

const (
	ModeInstructions Mode = "instructions"
	ModeInfo         Mode = "info"
	ModeIngredients  Mode = "ingredients"
	ModeName         Mode = "name"
	ModeNutrition    Mode = "nutrition"
	ModeStep         Mode = "step"
)

// seed returns the JSON skeleton embedded in the prompt for each mode. The
// model fills the skeleton, which keeps responses anchored to schema.org
// Recipe field names.
func (m Mode) seed() map[string]interface{} {
	switch m {
	case ModeInstructions:
		return map[string]interface{}{"recipeInstructions": "string"}
	case ModeInfo:
		return map[string]interface{}{
			"@context":      "https://schema.org",
			"@type":         "Recipe",
			"author":        "string",
			"cookTime":      "PT1H",
			"prepTime":      "PT15M",
			"datePublished": "string",
			"description":   "",
			"image":         nil,
			"recipeYield":   "",
		}
	case ModeIngredients:
		return map[string]interface{}{"recipeIngredient": []interface{}{"string"}}
	case ModeName:
		return map[string]interface{}{"name": ""}
	case ModeNutrition:
		return map[string]interface{}{
			"nutrition": map[string]interface{}{
				"@type":      "NutritionInformation",
				"calories":   "string",
				"fatContent": "string",
			},
		}
	case ModeStep:
		return map[string]interface{}{"@type": "HowToStep", "text": "string"}
	default:
		return map[string]interface{}{}
	}
}

// buildPrompt renders the extraction prompt for a mode. stepNumber is only
// meaningful for ModeStep. Every prompt demands a fenced json response; the
// extractor still tolerates the model ignoring that.
func buildPrompt(mode Mode, lang string, stepNumber int) string {
	seedJSON, err := json.Marshal(mode.seed())
	if err != nil {
		seedJSON = []byte("{}")
	}
	part := string(seedJSON)
	fence := "```"

	switch mode {
	case ModeStep:
		return fmt.Sprintf(
			"Write your Response in the language %s. Please fill the JSON document %s. "+
				"Only step %d. Return enclosed in (%sjson).", lang, part, stepNumber, fence)
	case ModeInfo:
		return fmt.Sprintf(
			"Write your Response in %s. Fill author, description, recipeYield, prepTime, and cookTime in %s. "+
				"Use ISO 8601 duration format. Return enclosed in (%sjson).", lang, part, fence)
	case ModeIngredients:
		return fmt.Sprintf(
			"Write your Response in %s. Append all clearly mentioned ingredients to 'recipeIngredient' in %s. "+
				"Return enclosed in (%sjson).", lang, part, fence)
	case ModeName:
		return fmt.Sprintf(
			"Respond in %s. Provide a concise title for this recipe in %s. "+
				"Return enclosed in (%sjson).", lang, part, fence)
	case ModeNutrition:
		return fmt.Sprintf(
			"Respond in %s. Fill calories and fatContent as strings in %s. "+
				"Return enclosed in (%sjson).", lang, part, fence)
	case ModeInstructions:
		return fmt.Sprintf(
			"Write your Response in %s. Complete JSON fragment %s. "+
				"Return enclosed in (%sjson).", lang, part, fence)
	default:
		return fmt.Sprintf(
			"Write your Response in %s. Fill JSON %s. Return enclosed in (%sjson).", lang, part, fence)
	}
}

// stepCountPrompt probes for the number of instruction steps; the answer
// drives the optional per-step flow.
const stepCountPrompt = "How many steps are in this recipe? Please respond with only a number."

// fixedInteractionStatistic is merged unconditionally; the chat model is
// never asked for engagement numbers.
func fixedInteractionStatistic() map[string]interface{} {
	return map[string]interface{}{
		"interactionStatistic": map[string]interface{}{
			"@type":                "InteractionCounter",
			"interactionType":      "https://schema.org/Comment",
			"userInteractionCount": "140",
		},
	}
}

// fixedDietSuitability is merged unconditionally as an explicit null.
func fixedDietSuitability() map[string]interface{} {
	return map[string]interface{}{"suitableForDiet": nil}
}
