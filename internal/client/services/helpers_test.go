package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/client"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/normalize"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/query"
	"github.com/dmitrijs2005/flightschool-cms/internal/cmstest"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var adminRole = map[string]any{"id": 3, "name": "Admin", "type": "admin"}

type harness struct {
	srv     *cmstest.Server
	db      *sql.DB
	client  *client.HTTPClient
	auth    AuthService
	content *ContentService
	cache   *query.Cache
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newHarness(t *testing.T, srvOpts []cmstest.Option, authOpts ...AuthOption) *harness {
	t.Helper()
	srv := cmstest.New(srvOpts...)
	t.Cleanup(srv.Close)

	h := &harness{srv: srv, db: setupDB(t)}
	h.client = client.NewHTTPClient(srv.APIURL(), 5*time.Second)
	h.auth = NewAuthService(h.client, h.db, authOpts...)
	h.client.BindSession(h.auth)

	h.cache = query.NewCache(query.WithRetry(2, time.Millisecond))
	h.content = NewContentService(h.client, h.cache, normalize.New(srv.URL), srv.URL, nil)
	h.auth.Subscribe(h.content.SessionChanged)
	return h
}
