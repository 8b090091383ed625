package models

import "time"

// ImageSavedEvent is published after the image file has been replaced.
type ImageSavedEvent struct {
	ID        string    `json:"id"`
	IDGen     string    `json:"id_gen"`
	TimeGen   string    `json:"time_gen"`
	Path      string    `json:"path"`
	FileSize  int64     `json:"file_size"`
	Format    string    `json:"format,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	MirrorURL string    `json:"mirror_url,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}
