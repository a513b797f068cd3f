package domain

import (
	"time"
)

// Activity actions written to the audit trail.
const (
	ActionLogin            = "Login"
	ActionLoginFailed      = "Login Failed"
	ActionLogout           = "Logout"
	ActionProductCreated   = "Product Created"
	ActionProductUpdated   = "Product Updated"
	ActionProductDeleted   = "Product Deleted"
	ActionRateLimitCleared = "Rate Limits Cleared"
)

// Actor identifies who performed an admin action.
type Actor struct {
	Username string `json:"username"`
	IP       string `json:"ip"`
}

// ActivityEntry is one line of the admin activity log
type ActivityEntry struct {
	Time    time.Time `json:"time"`
	User    string    `json:"user"`
	IP      string    `json:"ip"`
	Action  string    `json:"action"`
	Details string    `json:"details,omitempty"`
}
