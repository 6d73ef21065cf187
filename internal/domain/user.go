package domain

import "time"

// User is the last-seen profile of a Telegram account that opened the app.
type User struct {
	TgID         int64     `db:"tg_id" json:"id"`
	Username     string    `db:"username" json:"username,omitempty"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName,omitempty"`
	LanguageCode string    `db:"language_code" json:"languageCode,omitempty"`
	PhotoURL     string    `db:"photo_url" json:"photoUrl,omitempty"`
	IsPremium    bool      `db:"is_premium" json:"isPremium,omitempty"`
	FirstSeenAt  time.Time `db:"first_seen_at" json:"firstSeenAt"`
	LastSeenAt   time.Time `db:"last_seen_at" json:"lastSeenAt"`
}
