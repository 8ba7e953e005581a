package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pazarsync/backend/internal/domain/integration"
)

func TestRegistry_GetReturnsRegisteredConnector(t *testing.T) {
	trendyol := NewTrendyolConnector("", nil)
	iyzico := NewIyzicoConnector("", nil)
	registry := NewRegistry(trendyol, iyzico)

	got, err := registry.Get(integration.PlatformCodeTrendyol)
	require.NoError(t, err)
	assert.Same(t, integration.Connector(trendyol), got)

	got, err = registry.Get(integration.PlatformCodeIyzico)
	require.NoError(t, err)
	assert.Same(t, integration.Connector(iyzico), got)
}

func TestRegistry_GetUnregisteredPlatform(t *testing.T) {
	registry := NewRegistry(NewTrendyolConnector("", nil))

	_, err := registry.Get(integration.PlatformCodeN11)
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrConnectorNotRegistered)
}

func TestRegistry_ListReturnsAll(t *testing.T) {
	registry := NewRegistry(
		NewTrendyolConnector("", nil),
		NewHepsiburadaConnector("", nil),
		NewN11Connector("", nil),
		NewAmazonSPConnector("", "", nil),
		NewIyzicoConnector("", nil),
	)

	conns := registry.List()
	assert.Len(t, conns, 5)

	seen := make(map[integration.PlatformCode]bool)
	for _, c := range conns {
		seen[c.Platform()] = true
	}
	assert.True(t, seen[integration.PlatformCodeHepsiburada])
	assert.True(t, seen[integration.PlatformCodeAmazonSP])
}

func TestRegistry_DuplicatePlatformKeepsLast(t *testing.T) {
	first := NewTrendyolConnector("http://first.invalid", nil)
	second := NewTrendyolConnector("http://second.invalid", nil)
	registry := NewRegistry(first, second)

	got, err := registry.Get(integration.PlatformCodeTrendyol)
	require.NoError(t, err)
	assert.Same(t, integration.Connector(second), got)
	assert.Len(t, registry.List(), 1)
}
