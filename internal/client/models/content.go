package models

import "time"

// Record is the identity and audit part shared by every view model.
// Audit timestamps are advisory and never drive logic.
type Record struct {
	ID          ID         `json:"id,omitempty"`
	DocumentID  ID         `json:"documentId,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// Key returns the identifier to address the record with: the document id
// when present, else the numeric id.
func (r Record) Key() ID {
	if r.DocumentID != "" {
		return r.DocumentID
	}
	return r.ID
}

type Aircraft struct {
	Record
	Name       string   `json:"name"`
	Model      string   `json:"model"`
	Category   string   `json:"category"`
	Type       string   `json:"type,omitempty"`
	Seats      int      `json:"seats"`
	EngineType string   `json:"engineType"`
	Speed      string   `json:"speed"`
	Range      string   `json:"range"`
	Features   []string `json:"features"`
	Image      string   `json:"image"`
	IsActive   bool     `json:"isActive"`
}

type Instructor struct {
	Record
	Name           string   `json:"name"`
	Title          string   `json:"title"`
	Experience     string   `json:"experience"`
	Qualifications []string `json:"qualifications"`
	Bio            string   `json:"bio"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Image          string   `json:"image"`
	IsActive       bool     `json:"isActive"`
}

// InstructorRef points at the instructor of a course. It is resolved lazily
// by id; Name is whatever the course payload carried, "TBD" otherwise.
type InstructorRef struct {
	ID         ID     `json:"id,omitempty"`
	DocumentID ID     `json:"documentId,omitempty"`
	Name       string `json:"name"`
}

// Assigned reports whether the course payload referenced an instructor.
func (r InstructorRef) Assigned() bool {
	return r.ID != "" || r.DocumentID != ""
}

func (r InstructorRef) Key() ID {
	if r.DocumentID != "" {
		return r.DocumentID
	}
	return r.ID
}

type Course struct {
	Record
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	FullDescription string        `json:"fullDescription"`
	Category        string        `json:"category"`
	Duration        string        `json:"duration"`
	FlightHours     string        `json:"flightHours"`
	GroundHours     string        `json:"groundHours"`
	Price           string        `json:"price,omitempty"`
	MaxStudents     int           `json:"maxStudents"`
	Certification   string        `json:"certification,omitempty"`
	Location        string        `json:"location,omitempty"`
	NextStartDate   string        `json:"nextStartDate,omitempty"`
	Details         []string      `json:"details"`
	Prerequisites   []string      `json:"prerequisites"`
	Curriculum      []string      `json:"curriculum"`
	Instructor      InstructorRef `json:"instructor"`
	IsActive        bool          `json:"isActive"`
}

type Testimonial struct {
	Record
	Quote       string `json:"quote"`
	AuthorName  string `json:"authorName"`
	AuthorTitle string `json:"authorTitle"`
	Image       string `json:"image"`
	Rating      int    `json:"rating,omitempty"`
	Published   bool   `json:"published"`
	IsActive    bool   `json:"isActive"`
}

// Asset describes an uploaded file; URL is as returned by the CMS and may be
// relative to the asset base URL.
type Asset struct {
	ID   FlexID  `json:"id"`
	Name string  `json:"name"`
	URL  string  `json:"url"`
	Mime string  `json:"mime,omitempty"`
	Size float64 `json:"size,omitempty"`
}
