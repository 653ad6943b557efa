package model

import "time"

// Role is the application role carried in access tokens.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleEmployee }

// ResourceGroup is the seniority group an employee belongs to.
type ResourceGroup string

const (
	GroupHead ResourceGroup = "head"
	GroupLead ResourceGroup = "lead"
	GroupTeam ResourceGroup = "equipe"
)

// GroupOrder is the fixed order used when views are grouped by
// resource group.
var GroupOrder = []ResourceGroup{GroupHead, GroupLead, GroupTeam}

// Valid reports whether g is a known resource group.
func (g ResourceGroup) Valid() bool {
	for _, v := range GroupOrder {
		if g == v {
			return true
		}
	}
	return false
}

// User represents an application user record as stored in the
// `users` table.  Handlers expose Profile instead so that the
// password hash never leaves the repository layer.
//
// Fields:
//  ID            – primary key identifier of the user.
//  Email         – unique email address.
//  PasswordHash  – bcrypt hashed password.
//  FullName      – display name.
//  JobFunction   – free-text job title.
//  AvatarURL     – optional avatar reference.
//  Role          – ADMIN or EMPLOYEE.
//  ResourceGroup – head, lead or equipe.
//  IsActive      – inactive users are hidden from team views and cannot log in.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
	ID            uint64        // users.id
	Email         string        // users.email
	PasswordHash  string        // users.password_hash
	FullName      string        // users.full_name
	JobFunction   string        // users.job_function
	AvatarURL     *string       // users.avatar_url (nullable)
	Role          Role          // users.role
	ResourceGroup ResourceGroup // users.resource_group
	IsActive      bool          // users.is_active
	CreatedAt     time.Time     // users.created_at
	UpdatedAt     time.Time     // users.updated_at
}

// Profile is the team-visible projection of a user.
type Profile struct {
	ID            uint64        `json:"id"`
	FullName      string        `json:"full_name"`
	AvatarURL     *string       `json:"avatar_url"`
	ResourceGroup ResourceGroup `json:"resource_group"`
	Role          Role          `json:"role"`
}

// Profile returns the team-visible projection of u.
func (u User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		ResourceGroup: u.ResourceGroup,
		Role:          u.Role,
	}
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
