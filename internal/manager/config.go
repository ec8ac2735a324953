package manager

import (
	"github.com/rs/zerolog"

	"fastllamad/internal/command"
	"fastllamad/internal/native"
	"fastllamad/internal/store"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxSessions = 16
	defaultTitleRunes  = 40
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Engine opens native contexts. Nil makes every init-model fail with a
	// dependency error.
	Engine native.Engine
	// Store holds saved sessions and is shared by every session.
	Store *store.Store
	// ModelsDir is scanned for model files announced in init-ack.
	ModelsDir string
	// WorkspaceDir roots each session's file browser.
	WorkspaceDir string
	// EngineDefaults fill fields omitted by init-model.
	EngineDefaults native.EngineConfig
	// Generation holds the initial generation parameters of new sessions.
	Generation command.Params
	// MaxSessions caps concurrently open sessions.
	MaxSessions int
	Logger      zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		engine:       cfg.Engine,
		store:        cfg.Store,
		modelsDir:    cfg.ModelsDir,
		workspaceDir: cfg.WorkspaceDir,
		log:          cfg.Logger,
		pub:          noopPublisher{},
		sessions:     make(map[string]*Session),
	}
	m.engineDefaults = cfg.EngineDefaults.WithDefaults(native.DefaultEngineConfig())
	m.params = cfg.Generation.WithDefaults(command.DefaultParams())
	if cfg.Generation.Prefix == "" && cfg.Generation.Suffix == "" {
		m.params.Prefix = command.DefaultPrefix
		m.params.Suffix = command.DefaultSuffix
	}
	if cfg.MaxSessions <= 0 {
		m.maxSessions = defaultMaxSessions
	} else {
		m.maxSessions = cfg.MaxSessions
	}
	m.startTime = now()
	return m
}
