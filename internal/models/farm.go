package models

import "time"

// Farm represents a farm managed by exactly one agent.
type Farm struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	AgentID   string    `db:"agent_id" json:"agent_id"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	FarmType  *string   `db:"farm_type" json:"farm_type,omitempty"`
	FarmSize  *float64  `db:"farm_size" json:"farm_size,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FarmDetail enriches Farm with the owning agent's username.
type FarmDetail struct {
	Farm
	AgentUsername string `db:"agent_username" json:"agent_username"`
}

// FarmFilter captures scoping and paging criteria for listing farms.
type FarmFilter struct {
	// AgentID limits results to farms managed by this agent.
	AgentID string
	// FarmID limits results to a single farm (farmer active-farm scope).
	FarmID   string
	IsActive *bool
	Page     int
	PageSize int
}
