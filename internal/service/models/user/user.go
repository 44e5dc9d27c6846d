package user

import "time"

// User is the owning reference for orders. Full user management lives in a
// separate service; intake only needs existence checks.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
