package api

import (
	"encoding/json"
	"time"
)

type Band struct {
	Name        string         `json:"name"`
	Orientation string         `json:"orientation"`
	Empty       bool           `json:"empty,omitempty"`
	Data        map[string]any `json:"data"`
	Children    []Band         `json:"children,omitempty"`
}

type Parameter struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

type Report struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  []Parameter `json:"parameters"`
	Bands       []string    `json:"bands"`
}

type Run struct {
	ID         string          `json:"id"`
	Report     string          `json:"report"`
	Status     string          `json:"status"`
	Error      *string         `json:"error,omitempty"`
	Params     map[string]any  `json:"params,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

type RunAccepted struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
