package model

import "time"

// Template is an uploaded printable asset mapped to a (module, document
// type) pair.  Either ObjectKey (blob storage) or URL is set; the resolver
// turns ObjectKey into an openable URL.
type Template struct {
	ID           uint64    `json:"id"`
	Module       string    `json:"module"`
	DocumentType string    `json:"document_type"`
	Name         string    `json:"name"`
	ObjectKey    string    `json:"object_key,omitempty"`
	URL          string    `json:"url"`
	MimeType     string    `json:"mime_type"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
