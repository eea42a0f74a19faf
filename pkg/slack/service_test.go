package slack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewService_DisabledWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewService(ServiceConfig{}))
	assert.Nil(t, NewService(ServiceConfig{Token: "xoxb-1"}))
	assert.Nil(t, NewService(ServiceConfig{Channel: "#general"}))
}

func TestNewService_ConfiguredReturnsService(t *testing.T) {
	svc := NewService(ServiceConfig{Token: "xoxb-test", Channel: "#roundtable"})
	assert.NotNil(t, svc)
}

func TestService_NotifyMeetingCompleted_NilReceiver(t *testing.T) {
	var s *Service
	err := s.NotifyMeetingCompleted(context.Background(), "STAN-0731", "summary")
	assert.NoError(t, err)
}
