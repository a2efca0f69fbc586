package models

import "time"

// FarmSummary aggregates platform-wide dashboard counters.
type FarmSummary struct {
	Farms           int     `db:"farms" json:"farms"`
	Farmers         int     `db:"farmers" json:"farmers"`
	Cows            int     `db:"cows" json:"cows"`
	TotalMilkLiters float64 `db:"total_milk_liters" json:"total_milk_liters"`
}

// ReportFilter narrows reporting queries. FarmerID matches either the
// record's recorder or the cow's owning farmer. Dates are inclusive on both
// ends.
type ReportFilter struct {
	FarmID    string
	FarmerID  string
	CowID     string
	StartDate *time.Time
	EndDate   *time.Time
}

// MilkReportItem is a flattened milk record for dashboard consumption.
type MilkReportItem struct {
	ID             string    `db:"id" json:"id"`
	Date           time.Time `db:"date" json:"date"`
	Quantity       float64   `db:"quantity" json:"quantity"`
	CowID          string    `db:"cow_id" json:"cow_id"`
	CowTagNumber   string    `db:"cow_tag_number" json:"cow_tag_number"`
	FarmID         string    `db:"farm_id" json:"farm_id"`
	FarmName       string    `db:"farm_name" json:"farm_name"`
	FarmerID       string    `db:"farmer_id" json:"farmer_id"`
	FarmerUsername string    `db:"farmer_username" json:"farmer_username"`
}

// MilkProductionReport is the aggregate payload of the milk report.
type MilkProductionReport struct {
	Count       int              `json:"count"`
	TotalLiters float64          `json:"total_liters"`
	Items       []MilkReportItem `json:"items"`
}

// ActivityReportItem is a flattened activity record for dashboards.
type ActivityReportItem struct {
	ID                 string    `db:"id" json:"id"`
	Date               time.Time `db:"date" json:"date"`
	ActivityType       string    `db:"activity_type" json:"activity_type"`
	Description        *string   `db:"description" json:"description,omitempty"`
	Category           *string   `db:"category" json:"category,omitempty"`
	CowID              string    `db:"cow_id" json:"cow_id"`
	CowTagNumber       string    `db:"cow_tag_number" json:"cow_tag_number"`
	FarmID             string    `db:"farm_id" json:"farm_id"`
	FarmName           string    `db:"farm_name" json:"farm_name"`
	RecordedByID       string    `db:"recorded_by_id" json:"recorded_by_id"`
	RecordedByUsername string    `db:"recorded_by_username" json:"recorded_by_username"`
}
