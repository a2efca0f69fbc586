package models

import "time"

// Activity is a dated event logged against a cow by a user.
type Activity struct {
	ID           string    `db:"id" json:"id"`
	ActivityType string    `db:"activity_type" json:"activity_type"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Date         time.Time `db:"date" json:"date"`
	Category     *string   `db:"category" json:"category,omitempty"`
	CowID        string    `db:"cow_id" json:"cow_id"`
	RecordedBy   string    `db:"recorded_by" json:"recorded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ActivityDetail enriches Activity with cow and farm context.
type ActivityDetail struct {
	Activity
	CowTagNumber       string `db:"cow_tag_number" json:"cow_tag_number"`
	FarmName           string `db:"farm_name" json:"farm_name"`
	RecordedByUsername string `db:"recorded_by_username" json:"recorded_by_username"`
}

// ActivityFilter captures scoping and paging criteria for listing activities.
type ActivityFilter struct {
	// AgentID limits results to activities on farms managed by this agent.
	AgentID string
	// RecorderID limits results to records logged by this user.
	RecorderID string
	CowID      string
	Page       int
	PageSize   int
}
