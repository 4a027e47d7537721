package parsers

import (
	"regexp"
	"strings"

	"marketing-workers/internal/models"
)

var (
	structureRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:business|legal|entity)[\s_-]*structure\W{0,3}(?:is|:|-|=|of)?\s*(?:an?\s+)?([A-Za-z][A-Za-z \-]{1,40}?)(?:[.,;\n]|$)`),
		regexp.MustCompile(`(?i)\b(LLC|S[- ]?Corp(?:oration)?|C[- ]?Corp(?:oration)?|sole proprietorship|limited liability company|general partnership|limited partnership|partnership|corporation|non-?profit)\b`),
	}
	riskLevelRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:legal[\s_-]*)?risk[\s_-]*(?:level|rating)?\W{0,3}(?:is|:|-|=)?\s*(?:considered\s+|relatively\s+)?(low|medium|moderate|high|minimal|significant)\b`),
		regexp.MustCompile(`(?i)(low|medium|moderate|high|minimal|significant)\s+(?:legal\s+|regulatory\s+)?risk`),
	}
)

// ParseLegal extracts LegalData from text, or returns ErrNoData.
func ParseLegal(text string) (data *models.LegalData, err error) {
	defer guard("legal", &err)
	data, _, err = parseLegal(text)
	return data, err
}

func parseLegal(text string) (*models.LegalData, Method, error) {
	if obj, err := sectionObject(text, "legal", "legalAnalysis", "legalData", "legalAssessment"); err == nil && validSection(legalSchema, obj) {
		var ld models.LegalData
		if err := decodeInto(obj, &ld); err == nil {
			ld.RiskLevel = normalizeLevel(ld.RiskLevel)
			if ld.Score <= 0 {
				ld.Score = ScoreLegal(&ld)
			}
			return &ld, MethodJSON, nil
		}
	}

	var ld models.LegalData
	found := false

	if v, ok := firstString(text, structureRes); ok {
		ld.BusinessStructure, found = strings.TrimSpace(v), true
	}
	if items := extractList(text, "licenses", "licences", "required licenses", "licensing"); len(items) > 0 {
		ld.Licenses, found = items, true
	}
	if items := extractList(text, "permits", "required permits"); len(items) > 0 {
		ld.Permits, found = items, true
	}
	if items := extractList(text, "regulations", "regulatory requirements", "compliance", "key regulations"); len(items) > 0 {
		ld.Regulations, found = items, true
	}
	if v, ok := firstString(text, riskLevelRes); ok {
		if level := normalizeLevel(v); level != "" {
			ld.RiskLevel, found = level, true
		}
	}

	if !found {
		return nil, MethodNone, ErrNoData
	}
	ld.Score = ScoreLegal(&ld)
	return &ld, MethodRegex, nil
}

// ScoreLegal rates legal exposure 0-100, higher is safer.
func ScoreLegal(ld *models.LegalData) float64 {
	var score float64
	switch ld.RiskLevel {
	case models.LevelLow:
		score = 85
	case models.LevelMedium:
		score = 65
	case models.LevelHigh:
		score = 35
	default:
		score = 60
	}

	if extra := len(ld.Regulations) - 3; extra > 0 {
		score -= clamp(float64(extra)*2, 0, 15)
	}
	if len(ld.Licenses)+len(ld.Permits) > 5 {
		score -= 5
	}
	return clamp(score, 0, 100)
}
