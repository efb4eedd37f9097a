package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/client"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/config"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/normalize"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/query"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/services"
	"github.com/dmitrijs2005/flightschool-cms/internal/filex"
	"github.com/dmitrijs2005/flightschool-cms/internal/logging"
)

// App is the back-office session: configuration, local state and the
// services the REPL commands delegate to.
type App struct {
	config  *config.Config
	db      *sql.DB
	auth    services.AuthService
	content *services.ContentService
	cache   *query.Cache
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp wires the CMS client, the session store and the query cache for
// an interactive session on stdin/stdout.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	return newApp(ctx, c, l, os.Stdin, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, l logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	if l == nil {
		l = logging.Discard()
	}

	if err := filex.EnsureParentDir(c.StatePath); err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, c.StatePath)
	if err != nil {
		l.Error(ctx, "error initializing database", "path", c.StatePath, "error", err)
		return nil, err
	}

	policy, err := services.PolicyFromConfig(c.AdminPolicy, c.AdminRoles)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	api := client.NewHTTPClient(c.APIURL, c.RequestTimeout, client.WithLogger(l.With("component", "client")))
	cache := query.NewCache(
		query.WithStaleTime(c.StaleTime),
		query.WithCacheTime(c.CacheTime),
		query.WithRetry(c.Retries, c.RetryDelay),
		query.WithLogger(l.With("component", "cache")),
	)
	n := normalize.New(c.UploadsURL, normalize.WithLogger(l.With("component", "normalize")))

	as := services.NewAuthService(api, db, services.WithAdminPolicy(policy), services.WithAuthLogger(l.With("component", "auth")))
	cs := services.NewContentService(api, cache, n, c.UploadsURL, l.With("component", "content"))
	api.BindSession(as)
	as.Subscribe(cs.SessionChanged)

	return &App{
		config:  c,
		db:      db,
		auth:    as,
		content: cs,
		cache:   cache,
		log:     l,
		reader:  bufio.NewReader(in),
		out:     out,
	}, nil
}

// Run starts the cache janitor and blocks in the REPL until the user exits
// or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close()

	go a.cache.Run(ctx, a.config.CacheTime)

	a.Root(ctx)
}

// Close releases the local session database.
func (a *App) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn(context.Background(), "error closing database", "error", err)
	}
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.auth.CurrentSession(ctx).Authenticated()
}

func (a *App) isAdmin(ctx context.Context) bool {
	return a.auth.IsAdmin(a.auth.CurrentSession(ctx))
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
