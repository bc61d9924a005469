package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Role is the privilege level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// Viewer is the identity a request acts as. The zero value is anonymous.
type Viewer struct {
	ID   primitive.ObjectID
	Role Role
}

// Anonymous returns the unauthenticated viewer.
func Anonymous() Viewer { return Viewer{} }

// IsAuthenticated reports whether the viewer carries an identity.
func (v Viewer) IsAuthenticated() bool { return !v.ID.IsZero() }

// IsAdmin reports whether the viewer is an authenticated administrator.
func (v Viewer) IsAdmin() bool { return v.IsAuthenticated() && v.Role == RoleAdmin }

// Owns reports whether the viewer is the given author.
func (v Viewer) Owns(author primitive.ObjectID) bool {
	return v.IsAuthenticated() && v.ID == author
}
