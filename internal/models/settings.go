package models

import "time"

// CORSSettings controls which browser origins may call the API.
type CORSSettings struct {
	AllowedOrigins   []string  `json:"allowed_origins" yaml:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int       `json:"max_age" yaml:"max_age"`
	UpdatedAt        time.Time `json:"-" yaml:"updated_at,omitempty"`
}

// RateLimitSettings holds the per-user API rate in limiter format ("5-S", "100-M").
type RateLimitSettings struct {
	Rate      string    `json:"rate" yaml:"rate"`
	UpdatedAt time.Time `json:"-" yaml:"updated_at,omitempty"`
}
