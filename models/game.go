package models

import "time"

type Game struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Slug string `json:"slug" gorm:"uniqueIndex;not null"`
	Name string `json:"name" gorm:"not null"`

	Active bool `json:"active" gorm:"default:true"`

	// Champion summary, recomputed from the top ranking after every win
	ChampionName   string `json:"champion_name,omitempty"`
	ChampionStreak int    `json:"champion_streak"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
