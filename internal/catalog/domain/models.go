package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Course is the slice of the catalog the transactional core reads.
type Course struct {
	ID           snowflake.ID `json:"id"`
	InstructorID snowflake.ID `json:"instructor_id"`
	Title        string       `json:"title"`
	Price        int64        `json:"price"`
	Currency     string       `json:"currency"`
	HasMaterials bool         `json:"has_materials"`
}

// Profile is a user as seen by enrollment, delivery and certificate flows.
type Profile struct {
	ID           snowflake.ID `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	Phone        string       `json:"phone"`
	AddressLine1 string       `json:"address_line1"`
	AddressLine2 string       `json:"address_line2"`
	City         string       `json:"city"`
	District     string       `json:"district"`
	PostalCode   string       `json:"postal_code"`
}

// HasDeliveryAddress reports whether materials can be shipped to the profile.
func (p Profile) HasDeliveryAddress() bool {
	for _, v := range []string{p.Phone, p.AddressLine1, p.City, p.District} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
