package services

import (
	"github.com/roundtable-run/roundtable/pkg/config"
	"github.com/roundtable-run/roundtable/pkg/orchestrator"
)

// socketLookupAdapter narrows config.SocketRegistry down to the
// orchestrator.SocketLookup interface the Agent Driver consumes, so
// pkg/orchestrator never needs to import pkg/config.
type socketLookupAdapter struct {
	registry *config.SocketRegistry
}

// NewSocketLookup wraps registry as an orchestrator.SocketLookup.
func NewSocketLookup(registry *config.SocketRegistry) orchestrator.SocketLookup {
	return socketLookupAdapter{registry: registry}
}

func (a socketLookupAdapter) Get(id string) (*orchestrator.SocketPersona, error) {
	s, err := a.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return &orchestrator.SocketPersona{Name: s.Name, SystemPrompt: s.SystemPrompt}, nil
}
