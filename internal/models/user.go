package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole determines which side of the marketplace a user primarily
// browses: suppliers and service providers are shown requests they could
// fulfil, customers are shown offers.
type UserRole string

const (
	RoleSupplier        UserRole = "supplier"
	RoleServiceProvider UserRole = "service_provider"
	RoleCustomer        UserRole = "customer"
)

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleSupplier, RoleServiceProvider, RoleCustomer:
		return true
	}
	return false
}

// User represents a registered member of the marketplace.
type User struct {
	ID           uuid.UUID `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password" json:"-"`
	Role         UserRole  `bson:"role" json:"role"`
	Address      string    `bson:"address" json:"address"`
	Postcode     string    `bson:"postcode" json:"postcode"`
	PhoneNumber  string    `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Description  string    `bson:"description" json:"description"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
