package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an admin-console account record. Authentication lives elsewhere.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUser(name, email, role string, now time.Time) *User {
	if role == "" {
		role = "agent"
	}
	return &User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		Status:    "Active",
		CreatedAt: now,
	}
}

// DemoUsers is the fixed first-run seed. Leads never get one.
func DemoUsers(now time.Time) []User {
	return []User{
		{ID: "demo-user-1", Name: "Sarah Johnson", Email: "sarah@homelistingai.com", Role: "admin", Status: "Active", CreatedAt: now},
		{ID: "demo-user-2", Name: "Mike Chen", Email: "mike@homelistingai.com", Role: "agent", Status: "Active", CreatedAt: now},
	}
}
