package protocol

import (
	"fastllamad/internal/command"
	"fastllamad/internal/filemanager"
	"fastllamad/internal/store"
)

// Outbound record types.
const (
	TypeInitAck        = "init-ack"
	TypeMessageAck     = "message-ack"
	TypeSessionListAck = "session-list-ack"
	TypeFileManagerAck = "file-manager-ack"
)

// Notification kinds. The record type is "<kind>-notification".
const (
	NotifyInfo    = "info"
	NotifyWarning = "warning"
	NotifyError   = "error"
	NotifySuccess = "success"
)

// InitAck answers a supported init.
type InitAck struct {
	Type        string              `json:"type"`
	CurrentPath string              `json:"current_path"`
	Files       []filemanager.Entry `json:"files"`
	SaveHistory []store.Descriptor  `json:"save_history"`
	Commands    []command.Info      `json:"commands"`
	Models      []string            `json:"models"`
}

// NewInitAck builds an init-ack. Nil slices are sent as empty arrays.
func NewInitAck(l filemanager.Listing, saves []store.Descriptor, models []string) InitAck {
	return InitAck{
		Type:        TypeInitAck,
		CurrentPath: l.Path,
		Files:       nonNil(l.Files),
		SaveHistory: nonNil(saves),
		Commands:    command.Describe(),
		Models:      nonNil(models),
	}
}

// MessageAck confirms a user message and carries its assigned id.
type MessageAck struct {
	Type    string `json:"type"`
	WebUIID string `json:"webui_id"`
	ID      string `json:"id"`
	Status  string `json:"status"`
}

// NewMessageAck acknowledges the client message webuiID as id.
func NewMessageAck(webuiID, id string) MessageAck {
	return MessageAck{Type: TypeMessageAck, WebUIID: webuiID, ID: id, Status: "success"}
}

// SessionListAck carries the valid saved sessions.
type SessionListAck struct {
	Type     string             `json:"type"`
	Sessions []store.Descriptor `json:"sessions"`
}

func NewSessionListAck(saves []store.Descriptor) SessionListAck {
	return SessionListAck{Type: TypeSessionListAck, Sessions: nonNil(saves)}
}

// FileManagerAck carries a directory listing.
type FileManagerAck struct {
	Type        string              `json:"type"`
	CurrentPath string              `json:"current_path"`
	Files       []filemanager.Entry `json:"files"`
}

func NewFileManagerAck(l filemanager.Listing) FileManagerAck {
	return FileManagerAck{Type: TypeFileManagerAck, CurrentPath: l.Path, Files: nonNil(l.Files)}
}

// Notification is a one-line status shown to the user.
type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Notify builds a "<kind>-notification" record.
func Notify(kind, msg string) Notification {
	return Notification{Type: kind + "-notification", Message: msg}
}

func Info(msg string) Notification    { return Notify(NotifyInfo, msg) }
func Warning(msg string) Notification { return Notify(NotifyWarning, msg) }
func Error(msg string) Notification   { return Notify(NotifyError, msg) }
func Success(msg string) Notification { return Notify(NotifySuccess, msg) }

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
