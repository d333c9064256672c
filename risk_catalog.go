// risk_catalog.go lists the risk kinds the display layer knows how to label.
// Kinds outside this catalog are kept in the result but not rendered.
package main

// RiskInfo is the display label for one risk kind.
type RiskInfo struct {
	Kind string
	Name string
	Icon string
}

// riskCatalog is in display order.
var riskCatalog = []RiskInfo{
	{Kind: "DroughtRisk", Name: "Drought Risk", Icon: "☀️"},
	{Kind: "FloodRisk", Name: "Flood Risk", Icon: "💧"},
	{Kind: "PestOutbreakRisk", Name: "Pest Risk", Icon: "🐛"},
	{Kind: "DiseaseRisk", Name: "Disease Risk", Icon: "🦠"},
	{Kind: "HeatStressRisk", Name: "Heat Stress", Icon: "🌡️"},
	{Kind: "SoilErosionRisk", Name: "Soil Erosion", Icon: "⛰️"},
	{Kind: "NutrientLeachingRisk", Name: "Nutrient Leaching", Icon: "🧪"},
	{Kind: "ColdStressRisk", Name: "Cold Stress", Icon: "❄️"},
	{Kind: "VegetationStressRisk", Name: "Vegetation Stress", Icon: "🌿"},
}

// RiskRow is one rendered risk card.
type RiskRow struct {
	RiskInfo
	Level      string
	Confidence float64
}

// knownRisks returns the catalogued risks present in risks, in catalog order.
func knownRisks(risks map[string]RiskAssessment) []RiskRow {
	rows := make([]RiskRow, 0, len(risks))
	for _, info := range riskCatalog {
		r, ok := risks[info.Kind]
		if !ok {
			continue
		}
		rows = append(rows, RiskRow{RiskInfo: info, Level: r.Level, Confidence: r.Confidence})
	}
	return rows
}
