package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Role is a member's standing within a single study group. The set is closed and
// ordered by privilege: Member < Admin < Creator.
type Role uint8

const (
	RoleMember Role = iota
	RoleAdmin
	RoleCreator
)

// Roles lists every role in privilege order
var Roles = []Role{RoleMember, RoleAdmin, RoleCreator}

// ErrUnknownRole is returned when a role name is not one of Member, Admin or Creator
var ErrUnknownRole = errors.New("unknown role")

var roleNames = [...]string{
	RoleMember:  "Member",
	RoleAdmin:   "Admin",
	RoleCreator: "Creator",
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
	return roleNames[r]
}

// Valid reports whether r is one of the three defined roles
func (r Role) Valid() bool {
	return r <= RoleCreator
}

// AtLeast reports whether r carries at least the privilege of other
func (r Role) AtLeast(other Role) bool {
	return r >= other
}

// ParseRole converts a persisted or user-supplied role name into a Role
func ParseRole(s string) (Role, error) {
	for i, name := range roleNames {
		if name == s {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// MarshalText encodes the role as its name
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText decodes a role name
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the role as its name so the column stays readable
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return roleNames[r], nil
}

// Scan reads a role name from the database
func (r *Role) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", value)
	}
}
