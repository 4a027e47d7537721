package parsers

import (
	"regexp"

	"marketing-workers/internal/models"
)

var (
	marketSizeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)market[\s_-]*size[^$\d\n]{0,40}(` + amountPattern + `)`),
		regexp.MustCompile(`(?i)(?:\bTAM\b|total addressable market)[^$\d\n]{0,30}(` + amountPattern + `)`),
		regexp.MustCompile(`(?i)(\$\s?\d[\d,]*(?:\.\d+)?(?:\s*(?:thousand|million|billion|mm|mn|bn|k|m|b)\b)?)\s+(?:global\s+|local\s+|domestic\s+)?(?:market|industry)`),
	}
	growthRateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:growth[\s_-]*rate|growing|CAGR|grows)[^\d\n-]{0,30}(-?\d+(?:\.\d+)?)\s*%`),
		regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*%\s*(?:CAGR|annual growth|growth|annually|per year|YoY)`),
	}
	targetAudienceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)target[\s_-]*(?:audience|market|customers?|demographic)\W{0,3}(?:is|are|:|-|includes?)\s*([^\n]+?)(?:\.\s|\.$|\n|$)`),
	}
	competitionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)competition(?:[\s_-]*level)?\W{0,3}(?:is|:|-|=)?\s*(?:considered\s+|fairly\s+|relatively\s+)?(low|medium|moderate|high|intense|minimal)`),
		regexp.MustCompile(`(?i)(low|medium|moderate|high|intense|minimal)\s+(?:level of\s+)?competition`),
	}
)

// ParseMarket extracts MarketData from text, or returns ErrNoData.
func ParseMarket(text string) (data *models.MarketData, err error) {
	defer guard("market", &err)
	data, _, err = parseMarket(text)
	return data, err
}

func parseMarket(text string) (*models.MarketData, Method, error) {
	if obj, err := sectionObject(text, "market", "marketAnalysis", "marketData"); err == nil && validSection(marketSchema, obj) {
		var md models.MarketData
		if err := decodeInto(obj, &md); err == nil {
			md.Competition = normalizeLevel(md.Competition)
			if md.Score <= 0 {
				md.Score = ScoreMarket(&md)
			}
			return &md, MethodJSON, nil
		}
	}

	var md models.MarketData
	found := false

	if v, ok := firstAmount(text, marketSizeRes); ok {
		md.MarketSize, found = v, true
	}
	if v, ok := firstNumber(text, growthRateRes); ok {
		md.GrowthRate, found = v, true
	}
	if v, ok := firstString(text, targetAudienceRes); ok {
		md.TargetAudience, found = v, true
	}
	if v, ok := firstString(text, competitionRes); ok {
		if level := normalizeLevel(v); level != "" {
			md.Competition, found = level, true
		}
	}
	if items := extractList(text, "trends", "market trends", "key trends"); len(items) > 0 {
		md.Trends, found = items, true
	}
	if items := extractList(text, "opportunities", "market opportunities", "key opportunities"); len(items) > 0 {
		md.Opportunities, found = items, true
	}

	if !found {
		return nil, MethodNone, ErrNoData
	}
	md.Score = ScoreMarket(&md)
	return &md, MethodRegex, nil
}

// ScoreMarket rates the market 0-100.
func ScoreMarket(md *models.MarketData) float64 {
	score := 50.0

	switch g := md.GrowthRate; {
	case g >= 10:
		score += 20
	case g >= 5:
		score += 10
	case g < 0:
		score -= 15
	}

	switch md.Competition {
	case models.LevelLow:
		score += 15
	case models.LevelHigh:
		score -= 15
	}

	opp := float64(len(md.Opportunities)) * 3
	score += clamp(opp, 0, 15)

	switch s := md.MarketSize; {
	case s >= 1e9:
		score += 10
	case s >= 1e8:
		score += 5
	}

	return clamp(score, 0, 100)
}
