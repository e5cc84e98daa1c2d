package entities

import "time"

// ChangeEvent is pushed to connected admin sessions after a successful
// mutation so open views can refresh without polling. Delivery is
// best-effort; the store is the source of truth.
type ChangeEvent struct {
	Operation  string    `json:"operation"`
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	At         time.Time `json:"at"`
}
