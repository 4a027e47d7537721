package parsers

import "marketing-workers/internal/common/validation"

var financialSchema = validation.MustCompile(`{
  "type": "object",
  "minProperties": 1,
  "anyOf": [
    {"required": ["startupCosts"]},
    {"required": ["monthlyExpenses"]},
    {"required": ["revenueProjection"]},
    {"required": ["breakEvenMonths"]},
    {"required": ["fundingRequired"]}
  ],
  "properties": {
    "startupCosts":    {"type": "number", "minimum": 0},
    "monthlyExpenses": {"type": "number", "minimum": 0},
    "revenueProjection": {
      "type": "object",
      "properties": {
        "year1": {"type": "number"},
        "year2": {"type": "number"},
        "year3": {"type": "number"}
      }
    },
    "breakEvenMonths": {"type": "number", "minimum": 0, "maximum": 600},
    "profitMargin":    {"type": "number", "minimum": -100, "maximum": 100},
    "fundingRequired": {"type": "number", "minimum": 0},
    "score":           {"type": "number", "minimum": 0, "maximum": 100}
  }
}`)

var marketSchema = validation.MustCompile(`{
  "type": "object",
  "anyOf": [
    {"required": ["marketSize"]},
    {"required": ["growthRate"]},
    {"required": ["targetAudience"]},
    {"required": ["competition"]}
  ],
  "properties": {
    "marketSize":     {"type": "number", "minimum": 0},
    "growthRate":     {"type": "number", "minimum": -100, "maximum": 1000},
    "targetAudience": {"type": "string"},
    "competition":    {"type": "string", "enum": ["low", "medium", "high", "moderate", "Low", "Medium", "High", "Moderate"]},
    "trends":         {"type": "array", "items": {"type": "string"}},
    "opportunities":  {"type": "array", "items": {"type": "string"}},
    "score":          {"type": "number", "minimum": 0, "maximum": 100}
  }
}`)

var legalSchema = validation.MustCompile(`{
  "type": "object",
  "anyOf": [
    {"required": ["businessStructure"]},
    {"required": ["licenses"]},
    {"required": ["permits"]},
    {"required": ["regulations"]},
    {"required": ["riskLevel"]}
  ],
  "properties": {
    "businessStructure": {"type": "string"},
    "licenses":          {"type": "array", "items": {"type": "string"}},
    "permits":           {"type": "array", "items": {"type": "string"}},
    "regulations":       {"type": "array", "items": {"type": "string"}},
    "riskLevel":         {"type": "string", "enum": ["low", "medium", "high", "moderate", "Low", "Medium", "High", "Moderate"]},
    "score":             {"type": "number", "minimum": 0, "maximum": 100}
  }
}`)

// validSection reports whether obj satisfies schema.
func validSection(schema *validation.Schema, obj map[string]interface{}) bool {
	res, err := schema.Validate(obj)
	return err == nil && res.Valid
}
