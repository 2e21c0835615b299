package models

const (
	EventBoothUpdate        = "booth:update"
	EventRegistrationUpdate = "registration:update"
	EventScheduleUpdate     = "schedule:update"
	EventMessageNew         = "message:new"
)

const (
	ActionAssigned  = "assigned"
	ActionUpdated   = "updated"
	ActionReserved  = "reserved"
	ActionReleased  = "released"
	ActionSubmitted = "submitted"
	ActionReviewed  = "reviewed"
	ActionAdded     = "added"
	ActionDeleted   = "deleted"
)

// RegistrationEvent is the registration:update payload.
type RegistrationEvent struct {
	Action       string                 `json:"action"`
	ExpoID       string                 `json:"expoId"`
	Registration *ExhibitorRegistration `json:"registration,omitempty"`
	Booth        *Booth                 `json:"booth,omitempty"`
}

// ScheduleEvent is the schedule:update payload.
type ScheduleEvent struct {
	Action    string   `json:"action"`
	ExpoID    string   `json:"expoId"`
	Session   *Session `json:"session,omitempty"`
	SessionID string   `json:"sessionId,omitempty"`
}
