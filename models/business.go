package models

import (
	"time"
)

type Business struct {
	ID               string    `json:"id"                 db:"id"`
	Name             string    `json:"name"               db:"name"`
	AutoReplyEnabled bool      `json:"auto_reply_enabled" db:"auto_reply_enabled"`
	CreatedAt        time.Time `json:"created_at"         db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"         db:"updated_at"`
}
