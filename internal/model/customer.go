package model

import (
	"encoding/json"
	"time"
)

// Customer is a contact record in the customer directory.  Email is
// stored lower-cased.  Customers are never merged, so two records may
// share an address.
//
// Fields:
//  ID        – opaque identifier (UUID string).
//  FirstName – given name.
//  LastName  – family name.
//  Email     – contact address, lower-case.
//  Phone     – contact phone number as entered.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Customer struct {
	ID        string    `json:"id"`        // customers.id
	FirstName string    `json:"firstName"` // customers.first_name
	LastName  string    `json:"lastName"`  // customers.last_name
	Email     string    `json:"email"`     // customers.email
	Phone     string    `json:"phone"`     // customers.phone
	CreatedAt time.Time `json:"createdAt"` // customers.created_at
	UpdatedAt time.Time `json:"updatedAt"` // customers.updated_at
}

// FullName joins first and last name with a single space.
func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// MarshalJSON adds the derived fullName attribute to the encoded record.
func (c Customer) MarshalJSON() ([]byte, error) {
	type plain Customer
	return json.Marshal(struct {
		plain
		FullName string `json:"fullName"`
	}{plain: plain(c), FullName: c.FullName()})
}
