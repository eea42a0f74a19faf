package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSockets_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]SocketConfig{
		"facilitator": {Name: "Facilitator", SystemPrompt: "builtin prompt"},
		"skeptic":     {Name: "Skeptic", SystemPrompt: "builtin prompt"},
	}
	user := map[string]SocketConfig{
		"facilitator": {Name: "Custom", SystemPrompt: "user prompt"},
		"mascot":      {Name: "Mascot", SystemPrompt: "user prompt"},
	}

	merged := mergeSockets(builtin, user)

	assert.Len(t, merged, 3)
	assert.Equal(t, "user prompt", merged["facilitator"].SystemPrompt)
	assert.Equal(t, "builtin prompt", merged["skeptic"].SystemPrompt)
	assert.Equal(t, "Mascot", merged["mascot"].Name)
}

func TestMergeSockets_EmptyUser(t *testing.T) {
	builtin := GetBuiltinSockets()
	merged := mergeSockets(builtin, nil)
	assert.Equal(t, len(builtin), len(merged))
}
