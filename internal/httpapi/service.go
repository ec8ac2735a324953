package httpapi

import (
	"context"

	"fastllamad/internal/manager"
	"fastllamad/pkg/types"
)

// Conn is one client session bound to a websocket connection.
type Conn interface {
	ID() string
	// Handle processes one inbound record. An error ends the connection.
	Handle(ctx context.Context, data []byte) error
	Close()
}

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() ([]types.Model, error)
	ListSessions() ([]types.SavedSession, error)
	Status() types.StatusResponse
	Ready() bool
	Connect(t manager.Transport) (Conn, error)
}

// FromManager exposes m as a Service.
func FromManager(m *manager.Manager) Service { return managerService{m} }

type managerService struct{ *manager.Manager }

func (s managerService) ListSessions() ([]types.SavedSession, error) {
	saves, err := s.ListSaves()
	if err != nil {
		return nil, err
	}
	out := make([]types.SavedSession, 0, len(saves))
	for _, d := range saves {
		out = append(out, types.SavedSession{ID: d.ID, Title: d.Title, ModelPath: d.ModelPath, Date: d.Date})
	}
	return out, nil
}

func (s managerService) Connect(t manager.Transport) (Conn, error) {
	sess, err := s.Open(t)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
