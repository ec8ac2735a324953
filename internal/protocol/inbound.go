// Package protocol defines the records exchanged with a client over the
// session transport and decodes inbound records.
package protocol

import (
	"fastllamad/internal/command"
	"fastllamad/internal/message"
	"fastllamad/internal/native"
)

// Inbound record types.
const (
	TypeInit          = "init"
	TypeInitModel     = "init-model"
	TypeUserMessage   = "user-message"
	TypeInvokeCommand = "invoke-command"
	TypeSessionSave   = "session-save"
	TypeSessionLoad   = "session-load"
	TypeSessionDelete = "session-delete"
	TypeSessionList   = "session-list"
	TypeFileManager   = "file-manager"
)

// SupportedVersions lists the protocol versions accepted by init.
var SupportedVersions = []string{"1.0"}

// Inbound is a decoded client record.
type Inbound interface {
	InboundType() string
}

// Init opens the conversation.
type Init struct {
	Version string `json:"version"`
}

// InitModel creates the engine context and loads a model. Omitted numeric
// fields take the engine defaults.
type InitModel struct {
	ModelPath string `json:"model_path"`
	native.EngineConfig
}

// Config returns the requested engine config with defaults applied.
func (m InitModel) Config(defaults native.EngineConfig) native.EngineConfig {
	return m.EngineConfig.WithDefaults(defaults)
}

// UserMessageStatus is the status carried by an inbound user message.
type UserMessageStatus struct {
	Kind     message.StatusKind `json:"kind"`
	Progress *float64           `json:"progress,omitempty"`
}

// UserMessage is a prompt to ingest and answer.
type UserMessage struct {
	WebUIID string            `json:"webui_id"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Status  UserMessageStatus `json:"status"`
}

// InvokeCommand runs a control command.
type InvokeCommand struct {
	Command string        `json:"command"`
	Args    []command.Arg `json:"args"`
}

// SessionSave snapshots the engine state. Title is optional.
type SessionSave struct {
	Title string `json:"title"`
}

// SessionLoad restores a saved snapshot.
type SessionLoad struct {
	ID string `json:"id"`
}

// SessionDelete removes a saved snapshot.
type SessionDelete struct {
	ID string `json:"id"`
}

// SessionList asks for the saved snapshots.
type SessionList struct{}

// File manager navigation kinds.
const (
	FileOpenDir = "open-dir"
	FileGoBack  = "go-back"
)

// FileManager navigates the workspace browser.
type FileManager struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

func (Init) InboundType() string          { return TypeInit }
func (InitModel) InboundType() string     { return TypeInitModel }
func (UserMessage) InboundType() string   { return TypeUserMessage }
func (InvokeCommand) InboundType() string { return TypeInvokeCommand }
func (SessionSave) InboundType() string   { return TypeSessionSave }
func (SessionLoad) InboundType() string   { return TypeSessionLoad }
func (SessionDelete) InboundType() string { return TypeSessionDelete }
func (SessionList) InboundType() string   { return TypeSessionList }
func (FileManager) InboundType() string   { return TypeFileManager }
