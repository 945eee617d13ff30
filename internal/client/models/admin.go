package models

import (
	"time"

	"github.com/dmitrijs2005/blogclient/internal/common"
)

// Account is a user record as the admin endpoints return it. Unlike User it
// carries the activation flag.
type Account struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type DashboardTotals struct {
	TotalUsers      int `json:"totalUsers"`
	TotalBlogs      int `json:"totalBlogs"`
	TotalCategories int `json:"totalCategories"`
}

// DashboardStats is the payload of GET /admin/dashboard/stats.
type DashboardStats struct {
	Totals      DashboardTotals `json:"stats"`
	RecentUsers []Account       `json:"recentUsers"`
	RecentBlogs []Blog          `json:"recentBlogs"`
}

// AccountUpdate is the body of PUT /admin/users/:id. Nil fields are left
// untouched.
type AccountUpdate struct {
	Role     *Role `json:"role,omitempty"`
	IsActive *bool `json:"isActive,omitempty"`
}

func (u AccountUpdate) Validate() error {
	if u.Role == nil && u.IsActive == nil {
		return common.Invalid("nothing to update")
	}
	if u.Role != nil {
		switch *u.Role {
		case RoleReader, RoleAuthor, RoleAdmin:
		default:
			return common.Invalid("unknown role %q", *u.Role)
		}
	}
	return nil
}
