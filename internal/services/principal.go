package services

import "github.com/google/uuid"

// Principal is the authenticated identity attached to every request by the
// auth middleware. IsStaff gates moderation and announcement publishing.
type Principal struct {
	ID       uuid.UUID
	Username string
	IsStaff  bool
}
