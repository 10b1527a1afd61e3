package models

import "time"

// Event is one externally submitted log occurrence as it arrives on the wire.
// ID is the submitter's identifier, not the storage primary key.
type Event struct {
	ID        int                    `json:"id"`
	Type      string                 `json:"type"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	Meta      map[string]interface{} `json:"meta"`
}

// Known event types, used as routing keys. Events outside this set are still
// stored but cannot be routed.
const (
	TypeAuth        = "auth"
	TypePayment     = "payment"
	TypeSystem      = "system"
	TypeApplication = "application"
)

// KnownTypes lists the event types with a persistor assignment.
var KnownTypes = []string{TypeAuth, TypePayment, TypeSystem, TypeApplication}

// Conventional severity labels. Level is free-form on the wire.
var Levels = []string{"INFO", "DEBUG", "WARN", "ERROR"}

// StoredLog is the durable representation of an Event: the original fields
// plus the normalized UTC timestamp. The storage primary key stays internal
// to the repository and is never exposed to routing or the API.
type StoredLog struct {
	ID        int                    `json:"id"`
	Type      string                 `json:"type"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Meta      map[string]interface{} `json:"meta"`
}

// CollectResponse is the body returned by POST /collect. Stored and Routed
// report the two independent outcomes; Info carries router diagnostic text.
type CollectResponse struct {
	Stored bool   `json:"stored"`
	Routed bool   `json:"routed"`
	Info   string `json:"info"`
}
