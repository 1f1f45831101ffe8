package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the closed set of caller roles known to the platform
type Role byte

const (
	RoleVoter Role = iota + 1
	RoleCommittee
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleVoter:
		return "voter"
	case RoleCommittee:
		return "committee"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

// ParseRole converts a claim value into a Role. An empty value means voter.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "voter", "student":
		return RoleVoter, nil
	case "committee":
		return RoleCommittee, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role: %q", value)
}

// Session is the authenticated identity attached to every request
type Session struct {
	UserID uuid.UUID
	Email  string
	Role   Role
	// Elevated is set when the request also carried a valid service key
	Elevated bool
}

// Anonymous returns the session used for requests without credentials
func Anonymous() Session {
	return Session{}
}

// Authenticated reports whether the session carries a caller identity
func (s Session) Authenticated() bool {
	return s.UserID != uuid.Nil && s.Role != 0
}

func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == RoleAdmin
}

// IsStaff is true for roles allowed to inspect other voters' records
func (s Session) IsStaff() bool {
	if !s.Authenticated() {
		return false
	}
	switch s.Role {
	case RoleAdmin, RoleCommittee:
		return true
	case RoleVoter:
		return false
	}
	return false
}
