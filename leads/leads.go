// Package leads holds captured contact details from the public landing
// form. A lead exists before any account does; later steps hang off it.
package leads

import "time"

type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
