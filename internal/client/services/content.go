package services

import (
	"context"
	"io"
	"net/http"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/client"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/normalize"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/query"
	"github.com/dmitrijs2005/flightschool-cms/internal/logging"
)

// ContentService is the page-level facade over the content client: cached,
// normalized reads per kind and mutations that invalidate their kind.
type ContentService struct {
	client     client.Client
	cache      *query.Cache
	normalizer *normalize.Normalizer
	uploadsURL string
	log        logging.Logger
}

func NewContentService(c client.Client, cache *query.Cache, n *normalize.Normalizer, uploadsURL string, l logging.Logger) *ContentService {
	if l == nil {
		l = logging.Discard()
	}
	return &ContentService{client: c, cache: cache, normalizer: n, uploadsURL: uploadsURL, log: l}
}

func errRecordNotFound(kind models.Kind, id models.ID) *client.CMSError {
	return &client.CMSError{Status: http.StatusNotFound, Name: "NotFoundError", Message: string(kind) + " " + id.String() + " not found"}
}

func listQuery[T any](s *ContentService, kind models.Kind, filter models.Filter, convert func([]byte) []T) *query.Query[[]T] {
	return query.New(s.cache, query.ListKey(kind, filter), func(ctx context.Context) ([]T, error) {
		raw, err := s.client.FetchCollection(ctx, kind, filter)
		if err != nil {
			return nil, err
		}
		return convert(raw), nil
	})
}

func recordQuery[T any](s *ContentService, kind models.Kind, id models.ID, convert func([]byte) T) *query.Query[T] {
	return query.New(s.cache, query.RecordKey(kind, id), func(ctx context.Context) (T, error) {
		var zero T
		raw, err := s.client.FetchByID(ctx, kind, id)
		if err != nil {
			return zero, err
		}
		rec, ok := normalize.Single(raw)
		if !ok {
			return zero, errRecordNotFound(kind, id)
		}
		return convert(rec), nil
	})
}

func byCategory(category string) models.Filter {
	return models.Filter{"category": category}
}

func (s *ContentService) Aircraft() *query.Query[[]models.Aircraft] {
	return listQuery(s, models.KindAircraft, nil, s.normalizer.AircraftList)
}

func (s *ContentService) AircraftByCategory(category string) *query.Query[[]models.Aircraft] {
	return listQuery(s, models.KindAircraft, byCategory(category), s.normalizer.AircraftList)
}

func (s *ContentService) AircraftByID(id models.ID) *query.Query[models.Aircraft] {
	return recordQuery(s, models.KindAircraft, id, s.normalizer.Aircraft)
}

func (s *ContentService) Instructors() *query.Query[[]models.Instructor] {
	return listQuery(s, models.KindInstructor, nil, s.normalizer.Instructors)
}

func (s *ContentService) InstructorByID(id models.ID) *query.Query[models.Instructor] {
	return recordQuery(s, models.KindInstructor, id, s.normalizer.Instructor)
}

func (s *ContentService) Courses() *query.Query[[]models.Course] {
	return listQuery(s, models.KindCourse, nil, s.normalizer.Courses)
}

func (s *ContentService) CoursesByCategory(category string) *query.Query[[]models.Course] {
	return listQuery(s, models.KindCourse, byCategory(category), s.normalizer.Courses)
}

func (s *ContentService) CourseByID(id models.ID) *query.Query[models.Course] {
	return recordQuery(s, models.KindCourse, id, s.normalizer.Course)
}

func (s *ContentService) Testimonials() *query.Query[[]models.Testimonial] {
	return listQuery(s, models.KindTestimonial, nil, s.normalizer.Testimonials)
}

func (s *ContentService) TestimonialByID(id models.ID) *query.Query[models.Testimonial] {
	return recordQuery(s, models.KindTestimonial, id, s.normalizer.Testimonial)
}

// Collection is the kind-agnostic list query; Data holds the kind's view
// model slice. It shares cache entries with the typed queries.
func (s *ContentService) Collection(kind models.Kind, filter models.Filter) *query.Query[any] {
	return query.New(s.cache, query.ListKey(kind, filter), func(ctx context.Context) (any, error) {
		raw, err := s.client.FetchCollection(ctx, kind, filter)
		if err != nil {
			return nil, err
		}
		return s.normalizer.Collection(kind, raw), nil
	})
}

// Record is the kind-agnostic by-id query.
func (s *ContentService) Record(kind models.Kind, id models.ID) *query.Query[any] {
	return query.New(s.cache, query.RecordKey(kind, id), func(ctx context.Context) (any, error) {
		raw, err := s.client.FetchByID(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		v, ok := s.normalizer.Record(kind, raw)
		if !ok {
			return nil, errRecordNotFound(kind, id)
		}
		return v, nil
	})
}

// CourseInstructor resolves the instructor a course references. It returns
// false when the course has none assigned.
func (s *ContentService) CourseInstructor(ctx context.Context, c models.Course) (models.Instructor, bool, error) {
	if !c.Instructor.Assigned() {
		return models.Instructor{}, false, nil
	}
	q := s.InstructorByID(c.Instructor.Key())
	defer q.Close()

	st := q.Load(ctx)
	if st.Err != nil {
		return models.Instructor{}, false, st.Err
	}
	if ctx.Err() != nil {
		return models.Instructor{}, false, ctx.Err()
	}
	return st.Data, true, nil
}

// Create stores a new record and returns it normalized. Every cached read
// of the kind is invalidated once the CMS has confirmed the write.
func (s *ContentService) Create(ctx context.Context, kind models.Kind, attrs map[string]any) (any, error) {
	raw, err := s.client.Create(ctx, kind, attrs)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, kind)
	v, _ := s.normalizer.Record(kind, raw)
	return v, nil
}

func (s *ContentService) Update(ctx context.Context, kind models.Kind, id models.ID, attrs map[string]any) (any, error) {
	raw, err := s.client.Update(ctx, kind, id, attrs)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, kind)
	v, _ := s.normalizer.Record(kind, raw)
	return v, nil
}

func (s *ContentService) Delete(ctx context.Context, kind models.Kind, id models.ID) error {
	if err := s.client.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.invalidate(ctx, kind)
	return nil
}

// UploadAsset uploads a media file. The returned asset's URL is resolved
// against the asset base URL; use its ID as the media reference in writes.
func (s *ContentService) UploadAsset(ctx context.Context, filename string, r io.Reader) (*models.Asset, error) {
	asset, err := s.client.UploadAsset(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	resolved := *asset
	resolved.URL = normalize.ResolveURL(s.uploadsURL, asset.URL)
	return &resolved, nil
}

func (s *ContentService) invalidate(ctx context.Context, kind models.Kind) {
	s.cache.InvalidateKind(kind)
	s.log.Debug(ctx, "cache invalidated", "kind", kind)
}

// SessionChanged drops every cached read. Pass it to AuthService.Subscribe.
func (s *ContentService) SessionChanged(ctx context.Context, _ models.Session) {
	s.cache.Clear()
	s.log.Debug(ctx, "cache cleared after session change")
}
