package models

import "time"

// Cow represents an animal belonging to one farm and one farmer. The farmer
// must hold an active enrollment in the cow's farm at creation time; the
// link is not re-validated continuously.
type Cow struct {
	ID           string    `db:"id" json:"id"`
	TagNumber    string    `db:"tag_number" json:"tag_number"`
	Breed        string    `db:"breed" json:"breed"`
	BirthDate    time.Time `db:"birth_date" json:"birth_date"`
	HealthStatus *string   `db:"health_status" json:"health_status,omitempty"`
	FarmID       string    `db:"farm_id" json:"farm_id"`
	FarmerID     string    `db:"farmer_id" json:"farmer_id"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CowDetail enriches Cow with farm and farmer context.
type CowDetail struct {
	Cow
	FarmName       string `db:"farm_name" json:"farm_name"`
	FarmerUsername string `db:"farmer_username" json:"farmer_username"`
}

// CowFilter captures scoping and paging criteria for listing cows.
type CowFilter struct {
	// AgentID limits results to cows on farms managed by this agent.
	AgentID string
	// FarmerID limits results to cows owned by this farmer.
	FarmerID string
	FarmID   string
	Page     int
	PageSize int
}
