// Package store persists saved session snapshots and their descriptors.
package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fastllamad/internal/native"
)

// Descriptor is the metadata of one saved session snapshot.
type Descriptor struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ModelPath string `json:"model_path"`
	// Date is the save time in unix milliseconds.
	Date     int64  `json:"date"`
	Filename string `json:"filename"`
	// EngineConfig is the fixed-layout record of the context that was saved.
	EngineConfig []byte `json:"engine_config,omitempty"`
}

// NewDescriptor builds a descriptor with a fresh id. An empty title becomes
// "Session-<date>".
func NewDescriptor(title, modelPath string, cfg native.EngineConfig, now time.Time) (Descriptor, error) {
	rec, err := cfg.MarshalBinary()
	if err != nil {
		return Descriptor{}, err
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	date := now.UnixMilli()
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Session-%d", date)
	}
	return Descriptor{
		ID:           id,
		Title:        title,
		ModelPath:    modelPath,
		Date:         date,
		Filename:     id + ".bin",
		EngineConfig: rec,
	}, nil
}

// Config decodes the saved engine config record.
func (d Descriptor) Config() (native.EngineConfig, error) {
	var cfg native.EngineConfig
	if len(d.EngineConfig) == 0 {
		return cfg, fmt.Errorf("session %s has no engine config", d.ID)
	}
	err := cfg.UnmarshalBinary(d.EngineConfig)
	return cfg, err
}
