package config

import (
	supa "github.com/supabase-community/supabase-go"
)

// NewSupabaseClient initializes the Supabase client from the loaded config.
// The service key is preferred; Load falls back to the anonymous key when it
// is absent.
func NewSupabaseClient(cfg *AppConfig) (*supa.Client, error) {
	return supa.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, nil)
}
