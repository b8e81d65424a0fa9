package resources

import "strconv"

// User is the public account view served by the users endpoints
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Key returns the identifier used in resource paths
func (u User) Key() string { return strconv.FormatInt(u.ID, 10) }
