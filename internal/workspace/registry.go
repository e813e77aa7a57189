package workspace

import (
	"log/slog"
	"sync"
	"time"
)

// Registry owns the workspace of every connected client.
type Registry struct {
	dependencies Dependencies

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(dependencies Dependencies) *Registry {
	return &Registry{
		dependencies: dependencies,
		workspaces:   make(map[string]*Workspace),
	}
}

func (registry *Registry) Get(clientID string) (*Workspace, bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	workspace, ok := registry.workspaces[clientID]
	return workspace, ok
}

func (registry *Registry) GetOrCreate(clientID string) *Workspace {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if workspace, ok := registry.workspaces[clientID]; ok {
		return workspace
	}
	workspace := New(clientID, registry.dependencies)
	registry.workspaces[clientID] = workspace
	return workspace
}

func (registry *Registry) Remove(clientID string) {
	registry.mu.Lock()
	workspace, ok := registry.workspaces[clientID]
	delete(registry.workspaces, clientID)
	registry.mu.Unlock()

	if ok {
		workspace.Close()
	}
}

// Sweep closes workspaces idle for longer than idle and returns how many
// were evicted.
func (registry *Registry) Sweep(now time.Time, idle time.Duration) int {
	registry.mu.Lock()
	var evicted []*Workspace
	for clientID, workspace := range registry.workspaces {
		if now.Sub(workspace.LastSeen()) > idle {
			evicted = append(evicted, workspace)
			delete(registry.workspaces, clientID)
		}
	}
	registry.mu.Unlock()

	for _, workspace := range evicted {
		workspace.Close()
		slog.Debug("evicted idle workspace", "client_id", workspace.ClientID())
	}
	return len(evicted)
}

func (registry *Registry) Len() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.workspaces)
}

func (registry *Registry) Close() {
	registry.mu.Lock()
	workspaces := registry.workspaces
	registry.workspaces = make(map[string]*Workspace)
	registry.mu.Unlock()

	for _, workspace := range workspaces {
		workspace.Close()
	}
}
