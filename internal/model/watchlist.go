package model

import "time"

// Watchlist is the set of assets analyzed on schedule.
type Watchlist struct {
	Assets    []string  `json:"assets"`
	UpdatedAt time.Time `json:"updated_at"`
}
