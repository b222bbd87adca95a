package domain

import "time"

// Draft is a saved-or-unsaved snapshot of generated or edited source tied to a prompt.
// Field names follow the local-storage layout the frontend reads.
type Draft struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	IsSaved   bool      `json:"is_saved"`
}

// Project is a coarse grouping shown in the project list.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Preview   string    `json:"preview,omitempty"`
	Demo      bool      `json:"demo,omitempty"`
}
