package models

import (
	"time"
)

// AccountSettings is the free-form settings blob stored per account.
// LinkedPageIDs covers multi-page setups where one account answers for
// several page ids beyond its primary external_page_id.
type AccountSettings struct {
	LinkedPageIDs []string `json:"linked_page_ids,omitempty"`
	Greeting      string   `json:"greeting,omitempty"`
}

type SocialAccount struct {
	ID             string    `json:"id"               db:"id"`
	BusinessID     string    `json:"business_id"      db:"business_id"`
	Platform       Platform  `json:"platform"         db:"platform"`
	ExternalPageID string    `json:"external_page_id" db:"external_page_id"`
	PageName       string    `json:"page_name"        db:"page_name"`
	// AccessToken is stored AES-GCM encrypted; decrypt with core.TokenCipher.
	AccessToken    string          `json:"-"                db:"access_token"`
	TokenExpiresAt time.Time       `json:"token_expires_at" db:"token_expires_at"`
	Settings       AccountSettings `json:"settings"         db:"-"`
	CreatedAt      time.Time       `json:"created_at"       db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"       db:"updated_at"`
}
