// Package message holds the conversation log of a session and the records
// streamed to the client for it.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Wire type names.
const (
	TypeSystem = "system-message"
	TypeUser   = "user-message"
	TypeModel  = "model-message"
)

// SystemKind classifies a system message.
type SystemKind string

const (
	SystemInfo     SystemKind = "info"
	SystemWarning  SystemKind = "warning"
	SystemError    SystemKind = "error"
	SystemProgress SystemKind = "progress"
)

// ParseSystemKind rejects anything outside the declared kinds.
func ParseSystemKind(s string) (SystemKind, error) {
	switch k := SystemKind(s); k {
	case SystemInfo, SystemWarning, SystemError, SystemProgress:
		return k, nil
	}
	return "", fmt.Errorf("invalid system message kind %q", s)
}

// StatusKind is the lifecycle of a conversation message.
type StatusKind string

const (
	StatusLoading  StatusKind = "loading"
	StatusProgress StatusKind = "progress"
	StatusSuccess  StatusKind = "success"
	StatusFailure  StatusKind = "failure"
)

// ParseStatusKind rejects anything outside the declared statuses.
func ParseStatusKind(s string) (StatusKind, error) {
	switch k := StatusKind(s); k {
	case StatusLoading, StatusProgress, StatusSuccess, StatusFailure:
		return k, nil
	}
	return "", fmt.Errorf("invalid message status %q", s)
}

// Open reports whether a message with this status may still change.
func (k StatusKind) Open() bool { return k == StatusLoading || k == StatusProgress }

// Status of a user or model message. Progress is only set for StatusProgress.
type Status struct {
	Kind     StatusKind `json:"kind"`
	Progress *float64   `json:"progress,omitempty"`
}

// Message is any entry of the conversation log.
type Message interface {
	MessageID() string
	MessageType() string
}

// SystemMessage reports engine logs and progress.
type SystemMessage struct {
	ID           string
	Kind         SystemKind
	FunctionName string
	Text         string
	Progress     float64
}

func (m SystemMessage) MessageID() string   { return m.ID }
func (m SystemMessage) MessageType() string { return TypeSystem }

func (m SystemMessage) MarshalJSON() ([]byte, error) {
	out := struct {
		ID           string     `json:"id"`
		Type         string     `json:"type"`
		Kind         SystemKind `json:"kind"`
		FunctionName string     `json:"function_name"`
		Message      string     `json:"message"`
		Progress     *float64   `json:"progress,omitempty"`
	}{ID: m.ID, Type: TypeSystem, Kind: m.Kind, FunctionName: m.FunctionName, Message: m.Text}
	if m.Kind == SystemProgress {
		p := m.Progress
		out.Progress = &p
	}
	return json.Marshal(out)
}

// Conversation is the shared shape of user and model messages.
type Conversation struct {
	ID       string
	Title    string
	Text     string
	Status   StatusKind
	Progress float64
}

func (c Conversation) marshal(typ string) ([]byte, error) {
	st := Status{Kind: c.Status}
	if c.Status == StatusProgress {
		p := c.Progress
		st.Progress = &p
	}
	return json.Marshal(struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Title   string `json:"title"`
		Message string `json:"message"`
		Status  Status `json:"status"`
	}{ID: c.ID, Type: typ, Title: c.Title, Message: c.Text, Status: st})
}

// UserMessage is a prompt submitted by the client.
type UserMessage struct{ Conversation }

func (m UserMessage) MessageID() string            { return m.ID }
func (m UserMessage) MessageType() string          { return TypeUser }
func (m UserMessage) MarshalJSON() ([]byte, error) { return m.marshal(TypeUser) }

// ModelMessage is the streamed engine response.
type ModelMessage struct{ Conversation }

func (m ModelMessage) MessageID() string            { return m.ID }
func (m ModelMessage) MessageType() string          { return TypeModel }
func (m ModelMessage) MarshalJSON() ([]byte, error) { return m.marshal(TypeModel) }

// NewID returns a fresh message id.
func NewID() string { return uuid.NewString() }
