package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OfficerRole represents the available roles for the RBAC system.
type OfficerRole string

const (
	RoleAdministrator OfficerRole = "administrator"
	RoleOfficer       OfficerRole = "officer"
)

// Officer represents a cooperative representative stored in the officers table.
// Profile rows are provisioned by the identity subsystem; this service only
// reads them.
type Officer struct {
	ID          string      `db:"id" json:"id"`
	Username    string      `db:"username" json:"username"`
	FullName    string      `db:"full_name" json:"full_name"`
	Cooperative *string     `db:"cooperative" json:"cooperative,omitempty"`
	Position    *string     `db:"position" json:"position,omitempty"`
	Role        OfficerRole `db:"role" json:"role"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// OfficerFilter captures filtering criteria for listing officers.
type OfficerFilter struct {
	Role      *OfficerRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// JWTClaims carries the authenticated identity attached by the gateway.
type JWTClaims struct {
	OfficerID string      `json:"officer_id"`
	Role      OfficerRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
