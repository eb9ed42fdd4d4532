package model

// Dashboard is the admin analytics overview.
type Dashboard struct {
	Users        UserStats      `json:"users"`
	Donations    DonationStats  `json:"donations"`
	Pickups      PickupStats    `json:"pickups"`
	Collections  InventoryStats `json:"collections"`
	Monthly      []MonthlyStat  `json:"monthlyStats"`
	ClothesTypes map[string]int `json:"clothesTypeDistribution"`
}

type UserStats struct {
	Total  int `json:"total"`
	Donors int `json:"donors"`
	NGOs   int `json:"ngos"`
	Admins int `json:"admins"`
}

type DonationStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	PickedUp int `json:"pickedUp"`
}

type PickupStats struct {
	Total     int `json:"total"`
	Scheduled int `json:"scheduled"`
	Picked    int `json:"picked"`
	Rejected  int `json:"rejected"`
}

// InventoryStats sums collection rows.
type InventoryStats struct {
	Rows        int `json:"rows"`
	Collected   int `json:"collected"`
	Distributed int `json:"distributed"`
	Available   int `json:"available"`
}

// MonthlyStat is one calendar month of activity. Month is "YYYY-MM".
type MonthlyStat struct {
	Month     string `json:"month"`
	Donations int    `json:"donations"`
	Pickups   int    `json:"pickups"`
	Items     int    `json:"items"`
}

// MonthlyReport summarises the current calendar month.
type MonthlyReport struct {
	Month            string `json:"month"`
	TotalUsers       int    `json:"totalUsers"`
	TotalDonations   int    `json:"totalDonations"`
	ActiveNGOs       int    `json:"activeNGOs"`
	NewUsers         int    `json:"newUsers"`
	NewDonations     int    `json:"newDonations"`
	ItemsCollected   int    `json:"itemsCollected"`
	ItemsDistributed int    `json:"itemsDistributed"`
}

type AdminStats struct {
	TotalUsers     int `json:"totalUsers"`
	TotalDonations int `json:"totalDonations"`
}

// DayCount is the number of donations created on one day, "YYYY-MM-DD".
type DayCount struct {
	Day   string `json:"_id"`
	Count int    `json:"count"`
}

// NGOAnalytics is an NGO's own dashboard.
type NGOAnalytics struct {
	TotalPickups     int `json:"totalPickups"`
	ScheduledPickups int `json:"scheduledPickups"`
	PickedPickups    int `json:"pickedPickups"`
	RejectedPickups  int `json:"rejectedPickups"`
	Collected        int `json:"collected"`
	Distributed      int `json:"distributed"`
	Available        int `json:"available"`
}
