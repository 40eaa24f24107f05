package models

import "time"

// Player is an anonymous identity bound to a browser session token.
// Created on first nickname submission, renamed on later ones, never deleted.
type Player struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Token    string `json:"-" gorm:"uniqueIndex;not null"` // anonymous cookie token, never serialized
	Nickname string `json:"nickname" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
