package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/normalize"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/query"
	"github.com/dmitrijs2005/flightschool-cms/internal/cmstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCourses(srv *cmstest.Server) {
	srv.Seed("courses",
		map[string]any{"title": "Private Pilot License", "category": "core-licenses", "flightHours": 40, "groundHours": 35},
		map[string]any{"title": "Instrument Rating", "category": "core-licenses", "flightHours": 50, "groundHours": 40},
		map[string]any{"title": "Commercial Pilot License", "category": "core-licenses", "flightHours": 250, "groundHours": 60},
		map[string]any{"title": "Tailwheel Endorsement", "category": "endorsements"},
	)
}

func login(t *testing.T, h *harness) {
	t.Helper()
	h.srv.AddUser(7, "admin@school.com", "pw", adminRole)
	_, err := h.auth.Login(context.Background(), "admin@school.com", "pw")
	require.NoError(t, err)
}

func TestCoursesByCategory(t *testing.T) {
	for _, nested := range []bool{false, true} {
		var opts []cmstest.Option
		if nested {
			opts = append(opts, cmstest.WithNestedAttributes())
		}
		h := newHarness(t, opts)
		seedCourses(h.srv)

		st := h.content.CoursesByCategory("core-licenses").Load(context.Background())
		require.Nil(t, st.Err)
		assert.False(t, st.IsLoading)
		assert.Equal(t, query.StatusSuccess, st.Status)
		require.Len(t, st.Data, 3)
		assert.Equal(t, "Private Pilot License", st.Data[0].Title)
		assert.Equal(t, "40 flight hrs • 35 ground hrs", st.Data[0].Duration)
		assert.Equal(t, "TBD", st.Data[0].Instructor.Name)
	}
}

func TestAircraftByID_NotFound(t *testing.T) {
	h := newHarness(t, nil)

	st := h.content.AircraftByID(models.NumericID(42)).Load(context.Background())
	require.NotNil(t, st.Err)
	assert.Equal(t, http.StatusNotFound, st.Err.Status)
	assert.Equal(t, "NotFoundError", st.Err.Name)
	assert.Equal(t, query.StatusError, st.Status)
	assert.Equal(t, models.Aircraft{}, st.Data)
	assert.Equal(t, 1, h.srv.Calls("GET /aircrafts/42"))
}

func TestEmptyCollection(t *testing.T) {
	h := newHarness(t, nil)
	st := h.content.Testimonials().Load(context.Background())
	assert.Equal(t, query.StatusEmpty, st.Status)
	assert.NotNil(t, st.Data)
}

func TestConcurrentLoadsShareOneRequest(t *testing.T) {
	h := newHarness(t, []cmstest.Option{cmstest.WithLatency(50 * time.Millisecond)})
	seedCourses(h.srv)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := h.content.Courses().Load(context.Background())
			assert.Len(t, st.Data, 4)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.srv.Calls("GET /courses"))
}

func TestMutationInvalidatesKind(t *testing.T) {
	h := newHarness(t, nil)
	ids := h.srv.Seed("aircrafts",
		map[string]any{"name": "Cessna 172", "category": "Training Aircraft", "seats": 4},
		map[string]any{"name": "Piper Seneca", "category": "Multi-Engine", "seats": 6},
	)
	h.srv.Seed("instructors", map[string]any{"name": "Jane"})
	login(t, h)
	ctx := context.Background()

	load := func() {
		require.Len(t, h.content.Aircraft().Load(ctx).Data, 2)
		require.Len(t, h.content.AircraftByCategory("Training Aircraft").Load(ctx).Data, 1)
		require.Len(t, h.content.Instructors().Load(ctx).Data, 1)
	}
	load()
	load()
	assert.Equal(t, 2, h.srv.Calls("GET /aircrafts"))
	assert.Equal(t, 1, h.srv.Calls("GET /instructors"))

	updated, err := h.content.Update(ctx, models.KindAircraft, models.NumericID(ids[0]), map[string]any{"seats": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.(models.Aircraft).Seats)

	load()
	assert.Equal(t, 4, h.srv.Calls("GET /aircrafts"))
	assert.Equal(t, 1, h.srv.Calls("GET /instructors"))

	st := h.content.AircraftByCategory("Training Aircraft").Load(ctx)
	assert.Equal(t, 2, st.Data[0].Seats)
}

func TestCreateAndDelete(t *testing.T) {
	h := newHarness(t, nil)
	login(t, h)
	ctx := context.Background()

	assert.Equal(t, query.StatusEmpty, h.content.Testimonials().Load(ctx).Status)

	created, err := h.content.Create(ctx, models.KindTestimonial, map[string]any{"quote": "Loved it", "authorName": "Sam"})
	require.NoError(t, err)
	tm := created.(models.Testimonial)
	assert.Equal(t, "Loved it", tm.Quote)

	st := h.content.Testimonials().Load(ctx)
	require.Len(t, st.Data, 1)

	require.NoError(t, h.content.Delete(ctx, models.KindTestimonial, tm.Key()))
	assert.Equal(t, query.StatusEmpty, h.content.Testimonials().Load(ctx).Status)
}

func TestFailedMutationKeepsCache(t *testing.T) {
	h := newHarness(t, nil)
	h.srv.Seed("courses", map[string]any{"title": "PPL"})
	ctx := context.Background()

	h.content.Courses().Load(ctx)
	_, err := h.content.Create(ctx, models.KindCourse, map[string]any{"title": "IR"})
	require.Error(t, err)

	h.content.Courses().Load(ctx)
	assert.Equal(t, 1, h.srv.Calls("GET /courses"))
}

func TestTransientFailuresRetried(t *testing.T) {
	h := newHarness(t, nil)
	seedCourses(h.srv)
	h.srv.FailNext("GET /courses", http.StatusServiceUnavailable, 2)

	st := h.content.Courses().Load(context.Background())
	assert.Nil(t, st.Err)
	assert.Equal(t, query.StatusSuccess, st.Status)
	assert.Equal(t, 3, h.srv.Calls("GET /courses"))
}

func TestLogoutClearsCache(t *testing.T) {
	h := newHarness(t, nil)
	seedCourses(h.srv)
	login(t, h)
	ctx := context.Background()

	h.content.Courses().Load(ctx)
	h.auth.Logout(ctx)
	assert.Equal(t, 0, h.cache.Len())

	h.content.Courses().Load(ctx)
	assert.Equal(t, 2, h.srv.Calls("GET /courses"))
}

func TestCourseInstructor(t *testing.T) {
	h := newHarness(t, nil)
	h.srv.Seed("instructors", map[string]any{"id": 3, "name": "Jane Doe", "title": "CFII"})
	h.srv.Seed("courses",
		map[string]any{"title": "PPL", "instructor": map[string]any{"data": map[string]any{"id": 3, "attributes": map[string]any{"name": "Jane Doe"}}}},
		map[string]any{"title": "IR"},
	)
	ctx := context.Background()

	courses := h.content.Courses().Load(ctx).Data
	require.Len(t, courses, 2)

	inst, ok, err := h.content.CourseInstructor(ctx, courses[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "CFII", inst.Title)

	_, ok, err = h.content.CourseInstructor(ctx, courses[1])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadAssetResolvesURL(t *testing.T) {
	h := newHarness(t, nil)
	login(t, h)

	asset, err := h.content.UploadAsset(context.Background(), "c172.jpg", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, h.srv.URL+"/uploads/c172.jpg", asset.URL)
}

func TestKindAgnosticQueriesShareEntries(t *testing.T) {
	h := newHarness(t, nil)
	ids := h.srv.Seed("instructors", map[string]any{"name": "Jane"})
	ctx := context.Background()

	anyList := h.content.Collection(models.KindInstructor, nil).Load(ctx)
	require.IsType(t, []models.Instructor{}, anyList.Data)

	typed := h.content.Instructors().Load(ctx)
	require.Len(t, typed.Data, 1)
	assert.Equal(t, 1, h.srv.Calls("GET /instructors"))

	rec := h.content.Record(models.KindInstructor, models.NumericID(ids[0])).Load(ctx)
	require.IsType(t, models.Instructor{}, rec.Data)
	assert.Equal(t, normalize.InstructorPlaceholder, rec.Data.(models.Instructor).Image)
}
