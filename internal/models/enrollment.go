package models

import "time"

// Enrollment links a farmer to a farm. One row per (user, farm) pair. A
// farmer's current farm is the farm of their most recently enrolled active
// row, ties broken by latest enrolled_at.
type Enrollment struct {
	ID                 string    `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"user_id"`
	FarmID             string    `db:"farm_id" json:"farm_id"`
	IsActive           bool      `db:"is_active" json:"is_active"`
	Progress           int       `db:"progress" json:"progress"`
	IsCompleted        bool      `db:"is_completed" json:"is_completed"`
	TotalYield         float64   `db:"total_yield" json:"total_yield"`
	IsCertificateReady bool      `db:"is_certificate_ready" json:"is_certificate_ready"`
	EnrolledAt         time.Time `db:"enrolled_at" json:"enrolled_at"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with farmer and farm context.
type EnrollmentDetail struct {
	Enrollment
	Username string `db:"username" json:"username"`
	FarmName string `db:"farm_name" json:"farm_name"`
}

// EnrollmentFilter captures scoping and paging criteria for listing
// enrollments.
type EnrollmentFilter struct {
	// AgentID limits results to enrollments into farms this agent manages.
	AgentID string
	// UserID limits results to the farmer's own enrollments.
	UserID   string
	FarmID   string
	IsActive *bool
	Page     int
	PageSize int
}
