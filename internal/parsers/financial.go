package parsers

import (
	"regexp"

	"marketing-workers/internal/models"
)

var (
	startupCostRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)start[\s_-]*up[\s_-]*(?:costs?|capital|investment)[^$\d\n]{0,40}(` + amountPattern + `)`),
		regexp.MustCompile(`(?i)initial[\s_-]*(?:investment|capital|costs?)[^$\d\n]{0,30}(` + amountPattern + `)`),
		regexp.MustCompile(`(?i)(` + amountPattern + `)\s+(?:in\s+)?(?:startup|start-up|initial) (?:costs?|investment|capital)`),
	}
	monthlyExpenseRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)monthly[\s_-]*(?:operating[\s_-]*)?(?:expenses|costs|burn)[^$\d\n]{0,40}(` + amountPattern + `)`),
		regexp.MustCompile(`(?i)(` + amountPattern + `)\s*(?:per|/|a)\s*month`),
	}
	revenueYearRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)year[\s_-]*([123])\b[^$\d\n]{0,30}(` + amountPattern + `)`),
	}
	breakEvenRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)break[\s_-]*even[^\d\n]{0,40}(\d+)\s*months?`),
		regexp.MustCompile(`(?i)(\d+)\s*months?\s+to\s+break[\s_-]*even`),
	}
	breakEvenYearsRe = regexp.MustCompile(`(?i)break[\s_-]*even[^\d\n]{0,40}(\d+(?:\.\d+)?)\s*years?`)
	profitMarginRes  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:profit|net|gross)[\s_-]*margins?[^\d\n-]{0,25}(-?\d+(?:\.\d+)?)\s*%`),
		regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*%\s*(?:profit|net) margin`),
	}
	fundingRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)funding[\s_-]*(?:required|needed|requirements?|of)[^$\d\n]{0,40}(` + amountPattern + `)`),
		regexp.MustCompile(`(?i)(?:raise|seeking|need to raise)\s+(` + amountPattern + `)`),
	}
)

// ParseFinancial extracts FinancialData from text. It returns ErrNoData when
// neither an embedded JSON object nor the prose yields any figure.
func ParseFinancial(text string) (data *models.FinancialData, err error) {
	defer guard("financial", &err)
	data, _, err = parseFinancial(text)
	return data, err
}

func parseFinancial(text string) (*models.FinancialData, Method, error) {
	if obj, err := sectionObject(text, "financial", "financials", "financialAssessment", "financialAnalysis"); err == nil && validSection(financialSchema, obj) {
		var fd models.FinancialData
		if err := decodeInto(obj, &fd); err == nil {
			if fd.Score <= 0 {
				fd.Score = ScoreFinancial(&fd)
			}
			return &fd, MethodJSON, nil
		}
	}

	var fd models.FinancialData
	found := false

	if v, ok := firstAmount(text, startupCostRes); ok {
		fd.StartupCosts, found = v, true
	}
	if v, ok := firstAmount(text, monthlyExpenseRes); ok {
		fd.MonthlyExpenses, found = v, true
	}
	for _, m := range revenueYearRes[0].FindAllStringSubmatch(text, -1) {
		v, ok := ParseAmount(m[2])
		if !ok {
			continue
		}
		switch m[1] {
		case "1":
			if fd.RevenueProjection.Year1 == 0 {
				fd.RevenueProjection.Year1 = v
			}
		case "2":
			if fd.RevenueProjection.Year2 == 0 {
				fd.RevenueProjection.Year2 = v
			}
		case "3":
			if fd.RevenueProjection.Year3 == 0 {
				fd.RevenueProjection.Year3 = v
			}
		}
		found = true
	}
	if v, ok := firstNumber(text, breakEvenRes); ok {
		fd.BreakEvenMonths, found = int(v), true
	} else if v, ok := firstNumber(text, []*regexp.Regexp{breakEvenYearsRe}); ok {
		fd.BreakEvenMonths, found = int(v*12), true
	}
	if v, ok := firstNumber(text, profitMarginRes); ok {
		fd.ProfitMargin, found = v, true
	}
	if v, ok := firstAmount(text, fundingRes); ok {
		fd.FundingRequired, found = v, true
	}

	if !found {
		return nil, MethodNone, ErrNoData
	}
	fd.Score = ScoreFinancial(&fd)
	return &fd, MethodRegex, nil
}

// ScoreFinancial rates the figures 0-100. Unknown figures are neutral.
func ScoreFinancial(fd *models.FinancialData) float64 {
	score := 50.0

	switch m := fd.BreakEvenMonths; {
	case m <= 0:
	case m <= 12:
		score += 20
	case m <= 24:
		score += 10
	case m > 36:
		score -= 15
	}

	switch pm := fd.ProfitMargin; {
	case pm >= 20:
		score += 15
	case pm >= 10:
		score += 5
	case pm < 0:
		score -= 20
	}

	rp := fd.RevenueProjection
	if rp.Year1 > 0 && rp.Year3 > rp.Year1 {
		score += 10
	}
	if rp.Year1 > 0 && fd.StartupCosts > 2*rp.Year1 {
		score -= 10
	}
	if rp.Year1 > 0 && fd.MonthlyExpenses > 0 && fd.MonthlyExpenses*12 > rp.Year1*1.5 {
		score -= 10
	}

	return clamp(score, 0, 100)
}
