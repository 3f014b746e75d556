package models

import (
	"time"
)

type ContentType string

const (
	ContentExam        ContentType = "exam"
	ContentQuestion    ContentType = "question"
	ContentResource    ContentType = "resource"
	ContentLiveClass   ContentType = "live_class"
	ContentZoomClass   ContentType = "zoom_class"
	ContentFBLiveClass ContentType = "fb_live_class"
)

var ContentTypes = []ContentType{
	ContentExam,
	ContentQuestion,
	ContentResource,
	ContentLiveClass,
	ContentZoomClass,
	ContentFBLiveClass,
}

type AssignmentType string

const (
	AssignProgram AssignmentType = "program"
	AssignCourse  AssignmentType = "course"
	AssignChapter AssignmentType = "chapter"
)

var AssignmentTypes = []AssignmentType{AssignProgram, AssignCourse, AssignChapter}

type Resource struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required"`
	Kind      string    `json:"kind" validate:"omitempty,oneof=pdf video link document"`
	URL       string    `json:"url" validate:"omitempty,url"`
	CreatedAt time.Time `json:"created_at"`
}

func (r Resource) GetID() string { return r.ID }

func (r Resource) WithID(id string) Resource {
	r.ID = id
	return r
}

type LiveClass struct {
	ID              string    `json:"id"`
	Title           string    `json:"title" validate:"required"`
	Instructor      string    `json:"instructor,omitempty"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes" validate:"min=0"`
	JoinURL         string    `json:"join_url,omitempty" validate:"omitempty,url"`
}

func (c LiveClass) GetID() string { return c.ID }

func (c LiveClass) WithID(id string) LiveClass {
	c.ID = id
	return c
}

type ZoomClass struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required"`
	MeetingID string    `json:"meeting_id" validate:"required"`
	Passcode  string    `json:"passcode,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
}

func (c ZoomClass) GetID() string { return c.ID }

func (c ZoomClass) WithID(id string) ZoomClass {
	c.ID = id
	return c
}

type FBLiveClass struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required"`
	StreamURL string    `json:"stream_url" validate:"required,url"`
	StartsAt  time.Time `json:"starts_at"`
}

func (c FBLiveClass) GetID() string { return c.ID }

func (c FBLiveClass) WithID(id string) FBLiveClass {
	c.ID = id
	return c
}

// ContentRef identifies a content item across collections.
type ContentRef struct {
	ID   string      `json:"id" validate:"required"`
	Type ContentType `json:"type" validate:"required,content_type"`
}

// Binding names one organizational node a content item is assigned to.
type Binding struct {
	Type     AssignmentType `json:"type" validate:"required,assignment_type"`
	TargetID string         `json:"target_id" validate:"required"`
}

func ToProgram(id string) Binding { return Binding{Type: AssignProgram, TargetID: id} }
func ToCourse(id string) Binding  { return Binding{Type: AssignCourse, TargetID: id} }
func ToChapter(id string) Binding { return Binding{Type: AssignChapter, TargetID: id} }

// ContentAssignment binds a content item to exactly one program, course or
// chapter.
type ContentAssignment struct {
	ID             string         `json:"id"`
	ContentID      string         `json:"content_id"`
	ContentType    ContentType    `json:"content_type"`
	AssignmentType AssignmentType `json:"assignment_type"`
	TargetID       string         `json:"target_id"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (a ContentAssignment) GetID() string { return a.ID }

func (a ContentAssignment) WithID(id string) ContentAssignment {
	a.ID = id
	return a
}

func (a ContentAssignment) Binding() Binding {
	return Binding{Type: a.AssignmentType, TargetID: a.TargetID}
}
