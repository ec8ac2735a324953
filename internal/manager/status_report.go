package manager

import (
	"fastllamad/internal/native"
	"fastllamad/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	sessions := m.Sessions()
	m.mu.RLock()
	resp := types.StatusResponse{
		State:          "ready",
		LlamaBuilt:     native.LlamaBuilt,
		SessionsTotal:  m.total,
		UptimeSeconds:  int64(now().Sub(m.startTime).Seconds()),
		ServerTimeUnix: now().Unix(),
		LastError:      m.err,
	}
	if m.draining {
		resp.State = "draining"
	}
	m.mu.RUnlock()

	resp.Sessions = make([]types.SessionStatus, 0, len(sessions))
	for _, s := range sessions {
		snap := s.Snapshot()
		resp.Sessions = append(resp.Sessions, types.SessionStatus{
			ID:            snap.ID,
			State:         string(snap.State),
			ModelPath:     snap.ModelPath,
			Messages:      snap.Messages,
			ActiveSave:    snap.ActiveSave,
			Pending:       snap.Pending,
			ConnectedUnix: s.connected.Unix(),
		})
	}
	return resp
}
