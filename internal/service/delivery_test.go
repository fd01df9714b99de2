package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"messaging-service/internal/mocks"
)

func TestFanoutSkipsSender(t *testing.T) {
	registry := new(mocks.RegistryMock)
	registry.On("TrySend", mock.Anything, "bob", mock.Anything).Return(true)
	registry.On("TrySend", mock.Anything, "carol", mock.Anything).Return(false)

	router := NewRouter(registry)
	results := router.Fanout(context.Background(), []string{"alice", "bob", "carol"}, "alice", map[string]string{"type": "ping"})

	assert.Equal(t, []bool{true, false}, results)
	registry.AssertNotCalled(t, "TrySend", mock.Anything, "alice", mock.Anything)
}

func TestFanoutEmptyParticipants(t *testing.T) {
	registry := new(mocks.RegistryMock)
	router := NewRouter(registry)

	results := router.Fanout(context.Background(), nil, "alice", nil)

	assert.Empty(t, results)
	registry.AssertNotCalled(t, "TrySend", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnyDelivered(t *testing.T) {
	assert.False(t, AnyDelivered(nil))
	assert.False(t, AnyDelivered([]bool{false, false}))
	assert.True(t, AnyDelivered([]bool{false, true}))
}

func TestAllDelivered(t *testing.T) {
	assert.True(t, AllDelivered(nil))
	assert.False(t, AllDelivered([]bool{true, false}))
	assert.True(t, AllDelivered([]bool{true, true}))
}
