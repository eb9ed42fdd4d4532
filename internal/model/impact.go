package model

// Impact is a donor's environmental-impact summary.
type Impact struct {
	MonthlyDonations []MonthValue  `json:"monthlyDonations"`
	TotalImpact      ImpactTotals  `json:"totalImpact"`
	Achievements     []Achievement `json:"achievements"`
}

type MonthValue struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type ImpactTotals struct {
	Clothes       int     `json:"clothes"`
	Beneficiaries int     `json:"beneficiaries"`
	CO2Saved      float64 `json:"co2Saved"`      // kg
	RecyclingRate int     `json:"recyclingRate"` // percent
	WaterSaved    float64 `json:"waterSaved"`    // litres
	EnergySaved   float64 `json:"energySaved"`   // kWh
	LandfillSaved float64 `json:"landfillSaved"` // cubic metres
}

type Achievement struct {
	Icon     string `json:"icon"`
	Label    string `json:"label"`
	Unlocked bool   `json:"unlocked"`
}
