package api

import "github.com/OmGuptaIND/clipcam/session"

type SessionResponse struct {
	Session session.Snapshot `json:"session"`
	Error   string           `json:"error,omitempty"`
}

type ListSessionsResponse struct {
	Sessions []session.Snapshot `json:"sessions"`
}

type StopRecordingResponse struct {
	Status string `json:"status"`
	Handle string `json:"handle"`
}
