package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupcart/catalog-cli/internal/model"
)

// stubProvider is a minimal in-memory Provider for registry and
// orchestrator tests.
type stubProvider struct {
	name     string
	platform model.Platform
	listings []model.ExternalListing
	err      error
}

func (s *stubProvider) Search(ctx context.Context, query string, limit int, opts SearchOpts) ([]model.ExternalListing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Platform() model.Platform { return s.platform }

func TestRegistry_ForSelectorAll(t *testing.T) {
	a := &stubProvider{name: "a", platform: model.PlatformAlibaba}
	b := &stubProvider{name: "b", platform: model.PlatformAliexpress}
	r := NewRegistry(a, b)

	got, err := r.ForSelector(model.PlatformAll)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRegistry_ForSelectorSpecific(t *testing.T) {
	a := &stubProvider{name: "a", platform: model.PlatformAlibaba}
	b := &stubProvider{name: "b", platform: model.PlatformAliexpress}
	r := NewRegistry(a, b)

	got, err := r.ForSelector(model.PlatformAliexpress)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Name())
}

func TestRegistry_ForSelectorUnknown(t *testing.T) {
	r := NewRegistry(&stubProvider{name: "a", platform: model.PlatformAlibaba})

	_, err := r.ForSelector(model.Platform("ebay"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestRegistry_EmptyAll(t *testing.T) {
	r := NewRegistry()
	_, err := r.ForSelector(model.PlatformAll)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}
