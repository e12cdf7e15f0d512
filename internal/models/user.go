package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"` // argon2id encoded hash
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
