package models

import "encoding/json"

// Module is a server-defined content block. Content is kept raw here and
// decoded by the sections package according to Type.
type Module struct {
	ID      string          `json:"_id,omitempty"`
	Type    string          `json:"type"`
	Title   string          `json:"title,omitempty"`
	Content json.RawMessage `json:"content"`
	Status  Status          `json:"status,omitempty"`
	Version int             `json:"version,omitempty"`
}

type ModuleResponse struct {
	Module Module `json:"module"`
}
