// Package cmstest runs an in-memory CMS speaking the subset of the Strapi
// REST dialect the client uses. It is meant for tests only.
package cmstest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

const signingKey = "cmstest-secret"

// Role lookup modes of the users endpoints.
const (
	RolesInline = iota // /users/me returns the role
	RolesByID          // only /users/<id> returns the role
	RolesNone          // neither endpoint returns the role
)

type account struct {
	password string
	user     map[string]any
	role     map[string]any
}

// Server is a fake CMS. Records are stored flat and served either flat or
// nested under "attributes".
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	records  map[string][]map[string]any
	nextID   int64
	accounts map[string]*account
	failures map[string][]int
	calls    map[string]int
	headers  []http.Header
	nested   bool
	roles    int
	tokenTTL time.Duration
	delay    time.Duration
}

type Option func(*Server)

// WithNestedAttributes serves records as {"id", "attributes": {...}}.
func WithNestedAttributes() Option {
	return func(s *Server) { s.nested = true }
}

// WithRoleLookup selects which users endpoint reports roles.
func WithRoleLookup(mode int) Option {
	return func(s *Server) { s.roles = mode }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// WithLatency delays every response.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// New starts a server; callers must Close it.
func New(opts ...Option) *Server {
	s := &Server{
		records:  make(map[string][]map[string]any),
		accounts: make(map[string]*account),
		failures: make(map[string][]int),
		calls:    make(map[string]int),
		roles:    RolesInline,
		tokenTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.track)
	api.HandleFunc("/auth/local", s.login).Methods(http.MethodPost)
	api.HandleFunc("/upload", s.authorized(s.upload)).Methods(http.MethodPost)
	api.HandleFunc("/users/me", s.authorized(s.me)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", s.authorized(s.userByID)).Methods(http.MethodGet)
	api.HandleFunc("/{collection}", s.list).Methods(http.MethodGet)
	api.HandleFunc("/{collection}", s.authorized(s.create)).Methods(http.MethodPost)
	api.HandleFunc("/{collection}/{id}", s.get).Methods(http.MethodGet)
	api.HandleFunc("/{collection}/{id}", s.authorized(s.update)).Methods(http.MethodPut)
	api.HandleFunc("/{collection}/{id}", s.authorized(s.remove)).Methods(http.MethodDelete)

	s.Server = httptest.NewServer(r)
	return s
}

// APIURL is the base URL to configure the client with.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// Seed stores records under collection (e.g. "courses") and returns their
// numeric ids. Records keep any "id" they carry.
func (s *Server) Seed(collection string, records ...map[string]any) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, s.insert(collection, rec))
	}
	return ids
}

func (s *Server) insert(collection string, rec map[string]any) int64 {
	stored := make(map[string]any, len(rec)+2)
	for k, v := range rec {
		stored[k] = v
	}
	var id int64
	switch v := stored["id"].(type) {
	case int:
		id = int64(v)
	case int64:
		id = v
	case float64:
		id = int64(v)
	default:
		s.nextID++
		id = s.nextID
	}
	if id > s.nextID {
		s.nextID = id
	}
	stored["id"] = id
	if _, ok := stored["documentId"]; !ok {
		stored["documentId"] = fmt.Sprintf("doc%d", id)
	}
	s.records[collection] = append(s.records[collection], stored)
	return id
}

// Records returns a copy of the stored records of collection.
func (s *Server) Records(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.records[collection]))
	copy(out, s.records[collection])
	return out
}

// AddUser registers an account. role may be nil.
func (s *Server) AddUser(id int64, identifier, password string, role map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[identifier] = &account{
		password: password,
		user: map[string]any{
			"id":        id,
			"username":  strings.Split(identifier, "@")[0],
			"email":     identifier,
			"confirmed": true,
			"blocked":   false,
		},
		role: role,
	}
}

// FailNext makes the next n requests matching route answer with status.
// Routes are "<METHOD> /<path>" without the /api prefix, e.g. "GET /courses".
func (s *Server) FailNext(route string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures[route] = append(s.failures[route], status)
	}
}

// Calls reports how many requests matched route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Headers returns the headers of every request seen so far.
func (s *Server) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]http.Header, len(s.headers))
	copy(out, s.headers)
	return out
}

// Token mints a token for identifier, valid for ttl.
func (s *Server) Token(identifier string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub": identifier,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
		if s.delay > 0 {
			time.Sleep(s.delay)
		}

		s.mu.Lock()
		s.calls[route]++
		s.headers = append(s.headers, r.Header.Clone())
		var status int
		if queue := s.failures[route]; len(queue) > 0 {
			status, s.failures[route] = queue[0], queue[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, statusName(status), http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusForbidden, "ForbiddenError", "Forbidden")
			return
		}
		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte(signingKey), nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials")
			return
		}
		next(w, r)
	}
}

func (s *Server) subject(r *http.Request) *account {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}
	sub, _ := claims["sub"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[sub]
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "Invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Identifier]
	s.mu.Unlock()
	if !ok || acc.password != req.Password {
		writeError(w, http.StatusBadRequest, "ValidationError", "Invalid identifier or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jwt":  s.Token(req.Identifier, s.tokenTTL),
		"user": acc.user,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	acc := s.subject(r)
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, s.withRole(acc, s.roles == RolesInline))
}

func (s *Server) userByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	var found *account
	for _, acc := range s.accounts {
		if fmt.Sprint(acc.user["id"]) == id {
			found = acc
		}
	}
	s.mu.Unlock()
	if found == nil {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, s.withRole(found, s.roles != RolesNone))
}

func (s *Server) withRole(acc *account, include bool) map[string]any {
	out := make(map[string]any, len(acc.user)+1)
	for k, v := range acc.user {
		out[k] = v
	}
	if include && acc.role != nil {
		out["role"] = acc.role
	}
	return out
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]
	filters := equalityFilters(r)

	s.mu.Lock()
	var out []any
	for _, rec := range s.records[collection] {
		if matches(rec, filters) {
			out = append(out, s.shape(rec))
		}
	}
	s.mu.Unlock()

	if out == nil {
		out = []any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": map[string]any{"pagination": map[string]any{"page": 1, "pageSize": 25, "pageCount": 1, "total": len(out)}},
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	_, rec := s.find(vars["collection"], vars["id"])
	var body any
	if rec != nil {
		body = s.shape(rec)
	}
	s.mu.Unlock()

	if body == nil {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": body, "meta": map[string]any{}})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	attrs, ok := decodeData(w, r)
	if !ok {
		return
	}
	delete(attrs, "id")

	s.mu.Lock()
	collection := mux.Vars(r)["collection"]
	id := s.insert(collection, attrs)
	_, rec := s.find(collection, strconv.FormatInt(id, 10))
	body := s.shape(rec)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": body, "meta": map[string]any{}})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	attrs, ok := decodeData(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)

	s.mu.Lock()
	_, rec := s.find(vars["collection"], vars["id"])
	var body any
	if rec != nil {
		for k, v := range attrs {
			if k != "id" && k != "documentId" {
				rec[k] = v
			}
		}
		body = s.shape(rec)
	}
	s.mu.Unlock()

	if body == nil {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": body, "meta": map[string]any{}})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	i, rec := s.find(vars["collection"], vars["id"])
	if rec != nil {
		recs := s.records[vars["collection"]]
		s.records[vars["collection"]] = append(recs[:i:i], recs[i+1:]...)
	}
	s.mu.Unlock()

	if rec == nil {
		writeError(w, http.StatusNotFound, "NotFoundError", "Not Found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "Invalid multipart body")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "ValidationError", "Files are empty")
		return
	}

	var out []map[string]any
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "ApplicationError", err.Error())
			return
		}
		n, _ := io.Copy(io.Discard, f)
		_ = f.Close()

		s.mu.Lock()
		s.nextID++
		id := s.nextID
		s.mu.Unlock()

		out = append(out, map[string]any{
			"id":   id,
			"name": fh.Filename,
			"url":  "/uploads/" + fh.Filename,
			"mime": fh.Header.Get("Content-Type"),
			"size": float64(n) / 1024,
		})
	}
	writeJSON(w, http.StatusCreated, out)
}

// find locates a record by numeric id or document id; callers hold s.mu.
func (s *Server) find(collection, id string) (int, map[string]any) {
	for i, rec := range s.records[collection] {
		if fmt.Sprint(rec["id"]) == id || fmt.Sprint(rec["documentId"]) == id {
			return i, rec
		}
	}
	return -1, nil
}

// shape renders a stored record in the configured layout; callers hold s.mu.
func (s *Server) shape(rec map[string]any) map[string]any {
	if !s.nested {
		out := make(map[string]any, len(rec))
		for k, v := range rec {
			out[k] = v
		}
		return out
	}
	attrs := make(map[string]any, len(rec))
	for k, v := range rec {
		if k != "id" {
			attrs[k] = v
		}
	}
	return map[string]any{"id": rec["id"], "attributes": attrs}
}

// equalityFilters reads filters[<field>][$eq]=<value> parameters.
func equalityFilters(r *http.Request) map[string]string {
	out := map[string]string{}
	for key, values := range r.URL.Query() {
		if !strings.HasPrefix(key, "filters[") || !strings.HasSuffix(key, "][$eq]") || len(values) == 0 {
			continue
		}
		field := strings.TrimSuffix(strings.TrimPrefix(key, "filters["), "][$eq]")
		out[field] = values[0]
	}
	return out
}

func matches(rec map[string]any, filters map[string]string) bool {
	for field, want := range filters {
		switch v := rec[field].(type) {
		case []any:
			found := false
			for _, item := range v {
				if fmt.Sprint(item) == want {
					found = true
				}
			}
			if !found {
				return false
			}
		default:
			if fmt.Sprint(v) != want {
				return false
			}
		}
	}
	return true
}

func decodeData(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Data == nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "Missing \"data\" payload in the request body")
		return nil, false
	}
	return body.Data, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, name, message string) {
	writeJSON(w, status, map[string]any{
		"data": nil,
		"error": map[string]any{
			"status":  status,
			"name":    name,
			"message": message,
			"details": map[string]any{},
		},
	})
}

func statusName(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusUnauthorized:
		return "UnauthorizedError"
	case http.StatusForbidden:
		return "ForbiddenError"
	case http.StatusNotFound:
		return "NotFoundError"
	}
	return "ApplicationError"
}
