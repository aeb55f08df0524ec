package model

import "time"

// LLMCacheEntry is one cached model response, keyed by a hash of everything
// that determined it.
type LLMCacheEntry struct {
	Key           string    `json:"cache_key"`
	Kind          string    `json:"kind"`
	JSON          []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	Provider      string    `json:"model_provider"`
	Endpoint      string    `json:"model_endpoint"`
	Model         string    `json:"model"`
	PromptID      string    `json:"prompt_id"`
	PromptVersion int       `json:"prompt_version"`
}
