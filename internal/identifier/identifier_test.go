package identifier_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/identifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverDocURL_ReturnsFalseForEmptyPackageName(t *testing.T) {
	id := identifier.NewPatternProbingIdentifier(http.DefaultClient)
	_, ok := id.DiscoverDocURL(context.Background(), "   ")
	assert.False(t, ok)
}

func TestDiscoverDocURL_NoPatternRespondsReturnsFalse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	id := identifier.NewPatternProbingIdentifier(server.Client())
	_, ok := id.DiscoverDocURL(context.Background(), "nonexistent-package")
	assert.False(t, ok)
}

func TestDiscoverDocURL_ContextCancellationStopsProbing(t *testing.T) {
	id := identifier.NewPatternProbingIdentifier(http.DefaultClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := id.DiscoverDocURL(ctx, "somepackage")
	assert.False(t, ok)
}

func TestNewPatternProbingIdentifier_DefaultsClientWhenNil(t *testing.T) {
	id := identifier.NewPatternProbingIdentifier(nil)
	require.NotNil(t, id)
}
