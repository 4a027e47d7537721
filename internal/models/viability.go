// internal/models/viability.go
package models

const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"

	VerdictViable          = "viable"
	VerdictViableWithRisks = "viable_with_risks"
	VerdictNotViable       = "not_viable"
)

type FinancialData struct {
	StartupCosts      float64           `json:"startupCosts"`
	MonthlyExpenses   float64           `json:"monthlyExpenses"`
	RevenueProjection RevenueProjection `json:"revenueProjection"`
	BreakEvenMonths   int               `json:"breakEvenMonths"`
	ProfitMargin      float64           `json:"profitMargin"` // percent
	FundingRequired   float64           `json:"fundingRequired"`
	Score             float64           `json:"score"`
}

type RevenueProjection struct {
	Year1 float64 `json:"year1"`
	Year2 float64 `json:"year2"`
	Year3 float64 `json:"year3"`
}

type MarketData struct {
	MarketSize     float64  `json:"marketSize"`
	GrowthRate     float64  `json:"growthRate"` // percent
	TargetAudience string   `json:"targetAudience"`
	Competition    string   `json:"competition"`
	Trends         []string `json:"trends"`
	Opportunities  []string `json:"opportunities"`
	Score          float64  `json:"score"`
}

type LegalData struct {
	BusinessStructure string   `json:"businessStructure"`
	Licenses          []string `json:"licenses"`
	Permits           []string `json:"permits"`
	Regulations       []string `json:"regulations"`
	RiskLevel         string   `json:"riskLevel"`
	Score             float64  `json:"score"`
}

type ViabilityData struct {
	OverallScore float64        `json:"overallScore"`
	Verdict      string         `json:"verdict"`
	Financial    *FinancialData `json:"financial,omitempty"`
	Market       *MarketData    `json:"market,omitempty"`
	Legal        *LegalData     `json:"legal,omitempty"`
	Strengths    []string       `json:"strengths"`
	Risks        []string       `json:"risks"`
	Simulated    bool           `json:"simulated"`
}
