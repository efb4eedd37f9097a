package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/client"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/config"
	"github.com/dmitrijs2005/flightschool-cms/internal/cmstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var adminRole = map[string]any{"id": 3, "name": "Admin", "type": "admin"}
var editorRole = map[string]any{"id": 4, "name": "Editor", "type": "editor"}

func testConfig(t *testing.T, srv *cmstest.Server) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.APIURL = srv.APIURL()
	cfg.UploadsURL = srv.URL
	cfg.StatePath = filepath.Join(t.TempDir(), "state.db")
	cfg.RequestTimeout = 5 * time.Second
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func newTestApp(t *testing.T, srv *cmstest.Server, input string) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app, err := newApp(context.Background(), testConfig(t, srv), nil, strings.NewReader(input), &out)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app, &out
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

func newServer(t *testing.T) *cmstest.Server {
	t.Helper()
	srv := cmstest.New()
	t.Cleanup(srv.Close)
	srv.AddUser(1, "admin@school.com", "pw", adminRole)
	srv.AddUser(2, "editor@school.com", "pw", editorRole)
	return srv
}

func loginAs(t *testing.T, app *App, identifier string) {
	t.Helper()
	stubPassword(t, "pw")
	require.NoError(t, app.Login(context.Background(), []string{identifier}))
}

func TestLogin(t *testing.T) {
	srv := newServer(t)
	app, out := newTestApp(t, srv, "")
	ctx := context.Background()

	require.False(t, app.isLoggedIn(ctx))
	assert.Equal(t, "", app.getStatus())

	loginAs(t, app, "admin@school.com")
	assert.Contains(t, out.String(), "Logged in as admin (Admin)")
	assert.True(t, app.isLoggedIn(ctx))
	assert.True(t, app.isAdmin(ctx))
	assert.Equal(t, " (admin admin)", app.getStatus())

	out.Reset()
	require.NoError(t, app.WhoAmI(ctx, nil))
	assert.Contains(t, out.String(), "email: admin@school.com")
	assert.Contains(t, out.String(), "admin: true")
}

func TestLogin_PromptsForIdentifier(t *testing.T) {
	srv := newServer(t)
	app, out := newTestApp(t, srv, "editor@school.com\n")
	stubPassword(t, "pw")

	require.NoError(t, app.Login(context.Background(), nil))
	assert.Contains(t, out.String(), "Enter email or username")
	assert.Contains(t, out.String(), "Logged in as editor (Editor)")
	assert.Contains(t, out.String(), "cannot use admin commands")
	assert.Equal(t, " (editor)", app.getStatus())
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newServer(t)
	app, _ := newTestApp(t, srv, "")
	stubPassword(t, "nope")

	err := app.Login(context.Background(), []string{"admin@school.com"})
	e := client.AsCMSError(err)
	require.NotNil(t, e)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Equal(t, "Invalid identifier or password", e.Message)
	assert.False(t, app.isLoggedIn(context.Background()))
}

func TestLogoutAndWhoAmI(t *testing.T) {
	srv := newServer(t)
	app, out := newTestApp(t, srv, "")
	ctx := context.Background()
	loginAs(t, app, "admin@school.com")

	require.NoError(t, app.Logout(ctx, nil))
	assert.Contains(t, out.String(), "Logged out")
	assert.ErrorIs(t, app.WhoAmI(ctx, nil), errNotLoggedIn)
}

func TestList(t *testing.T) {
	srv := newServer(t)
	srv.Seed("courses",
		map[string]any{"title": "Private Pilot License", "category": "core-licenses", "flightHours": 40, "groundHours": 35},
		map[string]any{"title": "Tailwheel Endorsement", "category": "endorsements"},
	)
	app, out := newTestApp(t, srv, "")
	ctx := context.Background()

	require.NoError(t, app.List(ctx, []string{"courses", "category=core-licenses"}))
	assert.Contains(t, out.String(), "Private Pilot License")
	assert.Contains(t, out.String(), "40 flight hrs • 35 ground hrs")
	assert.NotContains(t, out.String(), "Tailwheel")

	out.Reset()
	require.NoError(t, app.List(ctx, []string{"testimonials"}))
	assert.Equal(t, "No testimonial records\n", out.String())
}

func TestList_Errors(t *testing.T) {
	srv := newServer(t)
	app, _ := newTestApp(t, srv, "")
	ctx := context.Background()

	require.Error(t, app.List(ctx, nil))
	require.Error(t, app.List(ctx, []string{"helicopters"}))
	require.Error(t, app.List(ctx, []string{"courses", "category"}))

	srv.FailNext("GET /aircrafts", http.StatusInternalServerError, 3)
	err := app.List(ctx, []string{"aircraft"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, client.AsCMSError(err).Status)
}

func TestShow_CourseResolvesInstructor(t *testing.T) {
	srv := newServer(t)
	srv.Seed("instructors", map[string]any{"id": 3, "name": "Jane Doe", "title": "CFII"})
	ids := srv.Seed("courses", map[string]any{
		"title":      "PPL",
		"instructor": map[string]any{"data": map[string]any{"id": 3, "attributes": map[string]any{"name": "Jane Doe"}}},
	})
	app, out := newTestApp(t, srv, "")

	require.NoError(t, app.Show(context.Background(), []string{"course", "doc" + strconv.FormatInt(ids[0], 10)}))
	assert.Contains(t, out.String(), `"title": "PPL"`)
	assert.Contains(t, out.String(), "instructor: Jane Doe, CFII")
}

func TestShow_NotFound(t *testing.T) {
	srv := newServer(t)
	app, _ := newTestApp(t, srv, "")

	err := app.Show(context.Background(), []string{"aircraft", "999"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, client.AsCMSError(err).Status)

	require.Error(t, app.Show(context.Background(), []string{"aircraft"}))
}

func TestAdminCommandsRequireAdmin(t *testing.T) {
	srv := newServer(t)
	app, _ := newTestApp(t, srv, "")
	ctx := context.Background()

	assert.ErrorIs(t, app.Create(ctx, []string{"aircraft"}), errNotLoggedIn)
	assert.ErrorIs(t, app.Delete(ctx, []string{"aircraft", "1"}), errNotLoggedIn)

	loginAs(t, app, "editor@school.com")
	assert.ErrorIs(t, app.Create(ctx, []string{"aircraft"}), errNotAdmin)
	assert.ErrorIs(t, app.Update(ctx, []string{"aircraft", "1"}), errNotAdmin)
	assert.ErrorIs(t, app.Delete(ctx, []string{"aircraft", "1"}), errNotAdmin)
	assert.ErrorIs(t, app.Upload(ctx, []string{"x.jpg"}), errNotAdmin)
}

func TestCreateUpdateDelete(t *testing.T) {
	srv := newServer(t)
	input := strings.Join([]string{
		`{"name": "Cessna 172", "category": "training", "seats": 4}`,
		"",
		`{"seats": 2}`,
		"",
		"no",
		"yes",
		"",
	}, "\n")
	app, out := newTestApp(t, srv, input)
	ctx := context.Background()
	loginAs(t, app, "admin@school.com")

	require.NoError(t, app.List(ctx, []string{"aircraft"}))
	assert.Contains(t, out.String(), "No aircraft records")

	out.Reset()
	require.NoError(t, app.Create(ctx, []string{"aircraft"}))
	require.Len(t, srv.Records("aircrafts"), 1)
	doc := srv.Records("aircrafts")[0]["documentId"].(string)
	assert.Contains(t, out.String(), "Created aircraft "+doc)

	out.Reset()
	require.NoError(t, app.List(ctx, []string{"aircraft"}))
	assert.Contains(t, out.String(), "Cessna 172")

	require.NoError(t, app.Update(ctx, []string{"aircraft", doc}))
	assert.EqualValues(t, 2, srv.Records("aircrafts")[0]["seats"])

	out.Reset()
	require.NoError(t, app.Delete(ctx, []string{"aircraft", doc}))
	assert.Contains(t, out.String(), "Cancelled")
	require.Len(t, srv.Records("aircrafts"), 1)

	require.NoError(t, app.Delete(ctx, []string{"aircraft", doc}))
	assert.Empty(t, srv.Records("aircrafts"))
}

func TestCreate_InvalidAttributes(t *testing.T) {
	srv := newServer(t)
	app, _ := newTestApp(t, srv, "not json\n\n\n")
	ctx := context.Background()
	loginAs(t, app, "admin@school.com")

	require.Error(t, app.Create(ctx, []string{"aircraft"}))
	require.Error(t, app.Create(ctx, []string{"aircraft"}))
	assert.Empty(t, srv.Records("aircrafts"))
}

func TestUpload(t *testing.T) {
	srv := newServer(t)
	app, out := newTestApp(t, srv, "")
	ctx := context.Background()
	loginAs(t, app, "admin@school.com")

	path := filepath.Join(t.TempDir(), "c172.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))

	require.NoError(t, app.Upload(ctx, []string{path}))
	assert.Contains(t, out.String(), "url="+srv.URL+"/uploads/c172.jpg")

	require.Error(t, app.Upload(ctx, []string{filepath.Join(t.TempDir(), "missing.jpg")}))
}

func TestRefresh(t *testing.T) {
	srv := newServer(t)
	srv.Seed("instructors", map[string]any{"name": "Jane Doe"})
	app, out := newTestApp(t, srv, "")
	ctx := context.Background()

	require.NoError(t, app.List(ctx, []string{"instructors"}))
	srv.Seed("instructors", map[string]any{"name": "John Roe"})

	out.Reset()
	require.NoError(t, app.List(ctx, []string{"instructors"}))
	assert.NotContains(t, out.String(), "John Roe")

	require.NoError(t, app.Refresh(ctx, []string{"instructor"}))
	out.Reset()
	require.NoError(t, app.List(ctx, []string{"instructors"}))
	assert.Contains(t, out.String(), "John Roe")

	require.NoError(t, app.Refresh(ctx, nil))
	assert.Zero(t, app.cache.Len())
	require.Error(t, app.Refresh(ctx, []string{"a", "b"}))
}

func TestRoot_ResumesStoredSession(t *testing.T) {
	srv := newServer(t)
	cfg := testConfig(t, srv)
	stubPassword(t, "pw")

	first, err := newApp(context.Background(), cfg, nil, strings.NewReader(""), io.Discard)
	require.NoError(t, err)
	require.NoError(t, first.Login(context.Background(), []string{"admin@school.com"}))
	first.Close()

	var out bytes.Buffer
	second, err := newApp(context.Background(), cfg, nil, strings.NewReader("whoami\nexit\n"), &out)
	require.NoError(t, err)
	t.Cleanup(second.Close)

	second.Root(context.Background())
	assert.Contains(t, out.String(), "Resumed session of admin")
	assert.Contains(t, out.String(), "cms (admin admin)> ")
	assert.Contains(t, out.String(), "role:  Admin")
	assert.Contains(t, out.String(), "Bye!")
}
