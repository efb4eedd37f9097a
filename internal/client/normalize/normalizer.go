package normalize

import (
	"context"
	"fmt"
	"time"

	"github.com/buger/jsonparser"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
	"github.com/dmitrijs2005/flightschool-cms/internal/logging"
)

// Default values substituted for fields a record does not carry.
const (
	DefaultCategory = "uncategorized"

	DefaultAircraftName = "Unknown Aircraft"
	DefaultModel        = "Unknown Model"
	DefaultEngine       = "Unknown Engine"
	DefaultSpeed        = "Unknown Speed"
	DefaultRange        = "Unknown Range"

	DefaultInstructorName  = "Unknown Instructor"
	DefaultInstructorTitle = "Flight Instructor"
	DefaultExperience      = "0 years"
	DefaultBio             = "No bio available"

	DefaultCourseTitle      = "Untitled Course"
	DefaultHours            = "0"
	DefaultCourseInstructor = "TBD"

	DefaultQuote  = "No quote available"
	DefaultAuthor = "Anonymous"
)

// Degradation describes one default substituted during normalization.
type Degradation struct {
	Kind    models.Kind
	ID      models.ID
	Field   string
	Default string
}

// Observer receives degradations. It is called synchronously.
type Observer func(Degradation)

// LogDegradations returns an Observer writing each degradation at debug level.
func LogDegradations(l logging.Logger) Observer {
	return func(d Degradation) {
		l.Debug(context.Background(), "normalizer fallback",
			"kind", d.Kind, "id", d.ID, "field", d.Field, "default", d.Default)
	}
}

// Normalizer converts raw CMS records to view models. It holds no state
// besides its configuration and is safe for concurrent use.
type Normalizer struct {
	uploadsURL string
	observer   Observer
	log        logging.Logger
}

type Option func(*Normalizer)

func WithObserver(o Observer) Option {
	return func(n *Normalizer) { n.observer = o }
}

func WithLogger(l logging.Logger) Option {
	return func(n *Normalizer) { n.log = l }
}

// New returns a Normalizer resolving relative media against uploadsURL.
func New(uploadsURL string, opts ...Option) *Normalizer {
	n := &Normalizer{uploadsURL: uploadsURL, log: logging.Discard()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var emptyRecord = []byte("{}")

// guard turns a panic into the all-defaults model produced by fallback.
func (n *Normalizer) guard(kind models.Kind, fallback func()) {
	if r := recover(); r != nil {
		n.log.Error(context.Background(), "normalizer panic", "kind", kind, "panic", fmt.Sprint(r))
		fallback()
	}
}

// builder reads the fields of one record, reporting every fallback.
type builder struct {
	n    *Normalizer
	kind models.Kind
	rec  record
	id   models.ID
}

func (n *Normalizer) builder(kind models.Kind, raw []byte) *builder {
	b := &builder{n: n, kind: kind, rec: record{raw: raw}}
	if id, ok := get(raw, "id").scalar(); ok {
		b.id = models.ID(id)
	}
	return b
}

func (b *builder) degrade(field, def string) {
	if b.n.observer != nil {
		b.n.observer(Degradation{Kind: b.kind, ID: b.id, Field: field, Default: def})
	}
}

func (b *builder) identity() models.Record {
	r := models.Record{ID: b.id}
	if doc, ok := b.rec.field("documentId", "document_id").scalar(); ok {
		r.DocumentID = models.ID(doc)
	}
	r.CreatedAt = b.timestamp("createdAt")
	r.UpdatedAt = b.timestamp("updatedAt")
	r.PublishedAt = b.timestamp("publishedAt")
	return r
}

func (b *builder) timestamp(key string) *time.Time {
	s, ok := b.rec.field(key).scalar()
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

// text reads a scalar field, substituting def when it is absent or empty.
// Only non-empty defaults count as degradations.
func (b *builder) text(def string, aliases ...string) string {
	if s, ok := b.rec.field(aliases...).scalar(); ok {
		return s
	}
	if def != "" {
		b.degrade(aliases[0], def)
	}
	return def
}

func (b *builder) prose(def string, aliases ...string) string {
	if s := richText(b.rec.field(aliases...)); s != "" {
		return s
	}
	if def != "" {
		b.degrade(aliases[0], def)
	}
	return def
}

// single reads a classification that some revisions store as a list or a
// relation; the first element or the related entry's name is used.
func (b *builder) single(def string, aliases ...string) string {
	v := b.rec.field(aliases...)
	if v.typ == jsonparser.Array {
		v = v.first()
	}
	if v.typ == jsonparser.Object {
		if rec, ok := relation(v); ok {
			v = rec.field("name", "slug", "title")
		}
	}
	if s, ok := v.scalar(); ok {
		return s
	}
	b.degrade(aliases[0], def)
	return def
}

func (b *builder) list(aliases ...string) []string {
	return list(b.rec.field(aliases...))
}

func (b *builder) integer(aliases ...string) int {
	n, _ := b.rec.field(aliases...).integer()
	return n
}

func (b *builder) flag(def bool, aliases ...string) bool {
	if v, ok := b.rec.field(aliases...).boolean(); ok {
		return v
	}
	return def
}

func (b *builder) image(placeholder string, aliases ...string) string {
	if u, ok := mediaURL(b.rec.field(aliases...)); ok {
		return ResolveURL(b.n.uploadsURL, u)
	}
	b.degrade(aliases[0], placeholder)
	return placeholder
}

// Aircraft normalizes one aircraft record.
func (n *Normalizer) Aircraft(raw []byte) (out models.Aircraft) {
	defer n.guard(models.KindAircraft, func() { out = n.aircraft(emptyRecord) })
	return n.aircraft(raw)
}

func (n *Normalizer) aircraft(raw []byte) models.Aircraft {
	b := n.builder(models.KindAircraft, raw)
	return models.Aircraft{
		Record:     b.identity(),
		Name:       b.text(DefaultAircraftName, "name"),
		Model:      b.text(DefaultModel, "model"),
		Category:   b.single(DefaultCategory, "category"),
		Type:       b.text("", "type"),
		Seats:      b.integer("seats"),
		EngineType: b.text(DefaultEngine, "enginetype", "engineType", "engine_type"),
		Speed:      b.text(DefaultSpeed, "speed", "cruiseSpeed"),
		Range:      b.text(DefaultRange, "range"),
		Features:   b.list("features"),
		Image:      b.image(AircraftPlaceholder, "image"),
		IsActive:   b.flag(true, "isActive"),
	}
}

// Instructor normalizes one instructor record.
func (n *Normalizer) Instructor(raw []byte) (out models.Instructor) {
	defer n.guard(models.KindInstructor, func() { out = n.instructor(emptyRecord) })
	return n.instructor(raw)
}

func (n *Normalizer) instructor(raw []byte) models.Instructor {
	b := n.builder(models.KindInstructor, raw)
	return models.Instructor{
		Record:         b.identity(),
		Name:           b.text(DefaultInstructorName, "name"),
		Title:          b.text(DefaultInstructorTitle, "title"),
		Experience:     b.text(DefaultExperience, "experience"),
		Qualifications: b.list("qualifications"),
		Bio:            b.prose(DefaultBio, "bio"),
		Email:          b.text("", "email"),
		Phone:          b.text("", "phone"),
		Image:          b.image(InstructorPlaceholder, "image", "photo"),
		IsActive:       b.flag(true, "isActive"),
	}
}

// Course normalizes one course record.
func (n *Normalizer) Course(raw []byte) (out models.Course) {
	defer n.guard(models.KindCourse, func() { out = n.course(emptyRecord) })
	return n.course(raw)
}

func (n *Normalizer) course(raw []byte) models.Course {
	b := n.builder(models.KindCourse, raw)
	c := models.Course{
		Record:        b.identity(),
		Title:         b.text(DefaultCourseTitle, "title"),
		Description:   b.prose("", "description"),
		Category:      b.single(DefaultCategory, "category"),
		FlightHours:   b.text(DefaultHours, "flightHours"),
		GroundHours:   b.text(DefaultHours, "groundHours"),
		Price:         b.text("", "price"),
		MaxStudents:   b.integer("maxStudents"),
		Certification: b.text("", "certification"),
		Location:      b.text("", "location"),
		NextStartDate: b.text("", "nextStartDate"),
		Details:       b.list("details"),
		Prerequisites: b.list("prerequisites"),
		Curriculum:    b.list("curriculum"),
		Instructor:    b.instructorRef("instructor"),
		IsActive:      b.flag(true, "isActive"),
	}
	c.FullDescription = b.prose(c.Description, "fullDescription")
	c.Duration = b.text("", "duration")
	if c.Duration == "" {
		c.Duration = fmt.Sprintf("%s flight hrs • %s ground hrs", c.FlightHours, c.GroundHours)
	}
	return c
}

func (b *builder) instructorRef(key string) models.InstructorRef {
	ref := models.InstructorRef{Name: DefaultCourseInstructor}
	rec, ok := relation(b.rec.field(key))
	if !ok {
		b.degrade(key, DefaultCourseInstructor)
		return ref
	}
	if id, ok := get(rec.raw, "id").scalar(); ok {
		ref.ID = models.ID(id)
	}
	if doc, ok := rec.field("documentId", "document_id").scalar(); ok {
		ref.DocumentID = models.ID(doc)
	}
	if name, ok := rec.field("name").scalar(); ok {
		ref.Name = name
	}
	return ref
}

// Testimonial normalizes one testimonial record.
func (n *Normalizer) Testimonial(raw []byte) (out models.Testimonial) {
	defer n.guard(models.KindTestimonial, func() { out = n.testimonial(emptyRecord) })
	return n.testimonial(raw)
}

func (n *Normalizer) testimonial(raw []byte) models.Testimonial {
	b := n.builder(models.KindTestimonial, raw)
	t := models.Testimonial{
		Record:      b.identity(),
		Quote:       b.prose(DefaultQuote, "quote"),
		AuthorName:  b.text(DefaultAuthor, "authorName", "name"),
		AuthorTitle: b.text("", "authorTitle", "title", "role"),
		Image:       b.image(TestimonialPlaceholder, "authorImage", "image"),
		Rating:      b.integer("rating"),
		IsActive:    b.flag(true, "isActive"),
	}
	t.Published = b.flag(t.PublishedAt != nil, "published")
	return t
}

func collection[T any](payload []byte, one func([]byte) T) []T {
	recs := Records(payload)
	out := make([]T, 0, len(recs))
	for _, raw := range recs {
		out = append(out, one(raw))
	}
	return out
}

// AircraftList normalizes every entry of a collection payload.
func (n *Normalizer) AircraftList(payload []byte) []models.Aircraft {
	return collection(payload, n.Aircraft)
}

func (n *Normalizer) Instructors(payload []byte) []models.Instructor {
	return collection(payload, n.Instructor)
}

func (n *Normalizer) Courses(payload []byte) []models.Course {
	return collection(payload, n.Course)
}

func (n *Normalizer) Testimonials(payload []byte) []models.Testimonial {
	return collection(payload, n.Testimonial)
}

// Record normalizes a single-record payload of the given kind. It returns
// false when the payload holds no record.
func (n *Normalizer) Record(kind models.Kind, payload []byte) (any, bool) {
	raw, ok := Single(payload)
	if !ok {
		return nil, false
	}
	switch kind {
	case models.KindAircraft:
		return n.Aircraft(raw), true
	case models.KindInstructor:
		return n.Instructor(raw), true
	case models.KindCourse:
		return n.Course(raw), true
	case models.KindTestimonial:
		return n.Testimonial(raw), true
	}
	return nil, false
}

// Collection normalizes a collection payload of the given kind into a slice
// of the kind's view model.
func (n *Normalizer) Collection(kind models.Kind, payload []byte) any {
	switch kind {
	case models.KindAircraft:
		return n.AircraftList(payload)
	case models.KindInstructor:
		return n.Instructors(payload)
	case models.KindCourse:
		return n.Courses(payload)
	case models.KindTestimonial:
		return n.Testimonials(payload)
	}
	return nil
}
