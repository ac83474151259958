// Package domain defines the core entities of the NextRead service.
package domain

import "time"

// User is an internal user record mapped to an external identity-provider id.
// Users are created on first authenticated contact and never mutated.
type User struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"externalId"`
	CreatedAt  time.Time `json:"createdAt"`
}
