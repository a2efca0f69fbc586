package models

import "time"

// UserRole is the tagged role variant driving the access policy engine.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleAgent  UserRole = "agent"
	RoleFarmer UserRole = "farmer"
)

// Valid reports whether the role is one of the known variants.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleFarmer:
		return true
	}
	return false
}

// User represents an application user stored in the users table. Role is
// immutable after creation; there is no role-change endpoint.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	MobileNo     string     `db:"mobile_no" json:"mobile_no"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures scoping and paging criteria for listing users.
type UserFilter struct {
	// AgentID limits results to the agent themself plus farmers enrolled
	// in farms the agent manages.
	AgentID string
	// UserID limits results to a single user (farmer self-scope).
	UserID   string
	Role     *UserRole
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
