// Package apitest wires a signed-in backend client to an in-process mock
// backend for screen and shell tests.
package apitest

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storynest/console/internal/auth"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/mockapi"
	"github.com/storynest/console/internal/protocol"
	"github.com/storynest/console/internal/store"
)

// Harness is one mock backend with a client and stores bound to it
type Harness struct {
	Backend  *mockapi.Server
	HTTP     *httptest.Server
	Client   *protocol.Client
	Tokens   *auth.Manager
	Auth     *store.AuthStore
	Children *store.ChildStore
	Stories  *store.StoryStore
}

// New starts a mock backend and builds signed-out stores against it
func New(t testing.TB, cfg mockapi.Config) *Harness {
	t.Helper()
	backend := mockapi.NewServer(cfg, nil)
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	tokens, err := auth.NewManager(&interfaces.Profile{Name: "test"}, nil)
	require.NoError(t, err)
	client, err := protocol.NewClient(ts.URL+mockapi.APIPrefix, tokens)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return &Harness{
		Backend:  backend,
		HTTP:     ts,
		Client:   client,
		Tokens:   tokens,
		Auth:     store.NewAuthStore(client, tokens),
		Children: store.NewChildStore(client, ""),
		Stories:  store.NewStoryStore(client),
	}
}

// SignedIn starts a mock backend with the seeded account signed in and its
// children loaded
func SignedIn(t testing.TB) *Harness {
	t.Helper()
	cfg := mockapi.DefaultConfig()
	h := New(t, cfg)
	ctx := context.Background()
	_, err := h.Auth.Login(ctx, cfg.SeedEmail, cfg.SeedPassword)
	require.NoError(t, err)
	_, err = h.Children.Load(ctx)
	require.NoError(t, err)
	return h
}

// SelectChild activates the seeded child called name
func (h *Harness) SelectChild(t testing.TB, name string) interfaces.Child {
	t.Helper()
	for _, child := range h.Children.Children() {
		if child.Name == name {
			require.NoError(t, h.Children.Select(child.ID))
			return child
		}
	}
	require.FailNow(t, "no seeded child named "+name)
	return interfaces.Child{}
}
