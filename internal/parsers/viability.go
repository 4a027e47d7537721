package parsers

import (
	"fmt"
	"math"
	"strings"

	"marketing-workers/internal/models"
)

const (
	weightFinancial = 0.4
	weightMarket    = 0.35
	weightLegal     = 0.25
)

// Report says how each section of a viability assessment was obtained.
type Report struct {
	Financial Method   `json:"financial"`
	Market    Method   `json:"market"`
	Legal     Method   `json:"legal"`
	Errors    []string `json:"errors,omitempty"`
}

// Parsed reports whether at least one section came from the text.
func (r Report) Parsed() bool {
	return r.Financial != MethodNone || r.Market != MethodNone || r.Legal != MethodNone
}

// ParseViability parses all three sections and combines them. When none of
// them can be read it returns DefaultViability.
func ParseViability(text string) (models.ViabilityData, Report) {
	report := Report{Financial: MethodNone, Market: MethodNone, Legal: MethodNone}
	var vd models.ViabilityData

	if strings.TrimSpace(text) == "" {
		report.Errors = append(report.Errors, "empty text")
		return DefaultViability(), defaultReport(report)
	}

	fd, method, err := safeSection("financial", func() (interface{}, Method, error) { return parseFinancial(text) })
	if err == nil {
		vd.Financial, report.Financial = fd.(*models.FinancialData), method
	} else {
		report.Errors = append(report.Errors, err.Error())
	}

	md, method, err := safeSection("market", func() (interface{}, Method, error) { return parseMarket(text) })
	if err == nil {
		vd.Market, report.Market = md.(*models.MarketData), method
	} else {
		report.Errors = append(report.Errors, err.Error())
	}

	ld, method, err := safeSection("legal", func() (interface{}, Method, error) { return parseLegal(text) })
	if err == nil {
		vd.Legal, report.Legal = ld.(*models.LegalData), method
	} else {
		report.Errors = append(report.Errors, err.Error())
	}

	if !report.Parsed() {
		return DefaultViability(), defaultReport(report)
	}

	vd.Strengths = listFromJSONOrText(text, "strengths", "strengths", "key strengths", "pros")
	vd.Risks = listFromJSONOrText(text, "risks", "risks", "key risks", "cons", "challenges")
	Finalize(&vd)
	return vd, report
}

// listFromJSONOrText reads a top-level string array from embedded JSON, else a
// bullet list under one of headers.
func listFromJSONOrText(text, key string, headers ...string) []string {
	if doc, err := sectionObject(text); err == nil {
		if arr, ok := doc[key].([]interface{}); ok {
			out := make([]string, 0, len(arr))
			for _, v := range arr {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return extractList(text, headers...)
}

func defaultReport(r Report) Report {
	r.Financial, r.Market, r.Legal = MethodDefault, MethodDefault, MethodDefault
	return r
}

func safeSection(name string, fn func() (interface{}, Method, error)) (v interface{}, m Method, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, m, err = nil, MethodNone, fmt.Errorf("%w: %s parser panicked: %v", ErrNoData, name, r)
		}
	}()
	v, m, err = fn()
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return v, m, err
}

// Finalize scores sections that carry no score yet, then sets the weighted
// overall score, the verdict and derived strengths and risks. Weights of
// missing sections are redistributed over the present ones.
func Finalize(vd *models.ViabilityData) {
	var total, weights float64
	if vd.Financial != nil {
		if vd.Financial.Score <= 0 {
			vd.Financial.Score = ScoreFinancial(vd.Financial)
		}
		total += weightFinancial * vd.Financial.Score
		weights += weightFinancial
	}
	if vd.Market != nil {
		if vd.Market.Score <= 0 {
			vd.Market.Score = ScoreMarket(vd.Market)
		}
		total += weightMarket * vd.Market.Score
		weights += weightMarket
	}
	if vd.Legal != nil {
		if vd.Legal.Score <= 0 {
			vd.Legal.Score = ScoreLegal(vd.Legal)
		}
		total += weightLegal * vd.Legal.Score
		weights += weightLegal
	}

	if weights > 0 {
		vd.OverallScore = math.Round(total/weights*10) / 10
	}
	vd.Verdict = Verdict(vd.OverallScore)

	if len(vd.Strengths) == 0 {
		vd.Strengths = deriveStrengths(vd)
	}
	if len(vd.Risks) == 0 {
		vd.Risks = deriveRisks(vd)
	}
}

func Verdict(score float64) string {
	switch {
	case score >= 70:
		return models.VerdictViable
	case score >= 50:
		return models.VerdictViableWithRisks
	default:
		return models.VerdictNotViable
	}
}

func deriveStrengths(vd *models.ViabilityData) []string {
	out := []string{}
	if f := vd.Financial; f != nil {
		if f.BreakEvenMonths > 0 && f.BreakEvenMonths <= 18 {
			out = append(out, fmt.Sprintf("Break-even expected within %d months", f.BreakEvenMonths))
		}
		if f.ProfitMargin >= 15 {
			out = append(out, fmt.Sprintf("Healthy profit margin of %.0f%%", f.ProfitMargin))
		}
	}
	if m := vd.Market; m != nil {
		if m.GrowthRate >= 5 {
			out = append(out, fmt.Sprintf("Market growing at %.1f%% per year", m.GrowthRate))
		}
		if m.Competition == models.LevelLow {
			out = append(out, "Low competitive pressure")
		}
	}
	if l := vd.Legal; l != nil && l.RiskLevel == models.LevelLow {
		out = append(out, "Low legal and regulatory risk")
	}
	return out
}

func deriveRisks(vd *models.ViabilityData) []string {
	out := []string{}
	if f := vd.Financial; f != nil {
		if f.BreakEvenMonths > 36 {
			out = append(out, fmt.Sprintf("Long path to break-even (%d months)", f.BreakEvenMonths))
		}
		if f.ProfitMargin < 0 {
			out = append(out, "Negative projected profit margin")
		}
	}
	if m := vd.Market; m != nil {
		if m.Competition == models.LevelHigh {
			out = append(out, "Highly competitive market")
		}
		if m.GrowthRate < 0 {
			out = append(out, "Shrinking market")
		}
	}
	if l := vd.Legal; l != nil && l.RiskLevel == models.LevelHigh {
		out = append(out, "High legal and regulatory exposure")
	}
	return out
}

// DefaultViability is the simulated assessment shown when nothing could be parsed.
func DefaultViability() models.ViabilityData {
	vd := models.ViabilityData{
		Financial: &models.FinancialData{
			StartupCosts:    50000,
			MonthlyExpenses: 8000,
			RevenueProjection: models.RevenueProjection{
				Year1: 120000,
				Year2: 240000,
				Year3: 400000,
			},
			BreakEvenMonths: 18,
			ProfitMargin:    15,
			FundingRequired: 75000,
		},
		Market: &models.MarketData{
			MarketSize:     5e9,
			GrowthRate:     8,
			TargetAudience: "Small and medium-sized businesses",
			Competition:    models.LevelMedium,
			Trends:         []string{"Digital-first customer acquisition", "Growing demand for personalised services"},
			Opportunities:  []string{"Underserved local niches", "Partnerships with complementary businesses"},
		},
		Legal: &models.LegalData{
			BusinessStructure: "LLC",
			Licenses:          []string{"General business license"},
			Permits:           []string{"Local operating permit"},
			Regulations:       []string{"Consumer protection", "Data privacy (GDPR/CCPA)"},
			RiskLevel:         models.LevelMedium,
		},
		Simulated: true,
	}
	Finalize(&vd)
	return vd
}
