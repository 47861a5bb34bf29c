package metadata

// UserContext represents the authenticated user, set by auth middleware.
type UserContext struct {
	ID    int64 `json:"id"`
	Staff bool  `json:"staff"`
}

// IsStaff reports whether the user may use the admin endpoints.
func (u *UserContext) IsStaff() bool {
	return u != nil && u.Staff
}
