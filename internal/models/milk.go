package models

import "time"

// MilkProduction is a daily yield record for a cow. At most one record per
// cow per day; the store enforces UNIQUE (cow_id, date).
type MilkProduction struct {
	ID         string    `db:"id" json:"id"`
	Date       time.Time `db:"date" json:"date"`
	Quantity   float64   `db:"quantity" json:"quantity"`
	CowID      string    `db:"cow_id" json:"cow_id"`
	RecordedBy string    `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// MilkProductionDetail enriches MilkProduction with cow and farm context.
type MilkProductionDetail struct {
	MilkProduction
	CowTagNumber       string `db:"cow_tag_number" json:"cow_tag_number"`
	FarmName           string `db:"farm_name" json:"farm_name"`
	RecordedByUsername string `db:"recorded_by_username" json:"recorded_by_username"`
}

// MilkFilter captures scoping and paging criteria for listing milk records.
type MilkFilter struct {
	// AgentID limits results to records on farms managed by this agent.
	AgentID string
	// RecorderID limits results to records logged by this user.
	RecorderID string
	CowID      string
	Page       int
	PageSize   int
}
