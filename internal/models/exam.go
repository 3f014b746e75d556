package models

import (
	"time"
)

type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamPublished ExamStatus = "published"
)

type ExamCategory string

const (
	CategoryAcademic ExamCategory = "Academic"
	CategoryGeneral  ExamCategory = "General"
)

type SectionKind string

const (
	SectionListening SectionKind = "listening"
	SectionReading   SectionKind = "reading"
	SectionWriting   SectionKind = "writing"
)

// Sections in the order their questions are numbered.
var Sections = []SectionKind{SectionListening, SectionReading, SectionWriting}

type ListeningPart struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	AudioURL  string     `json:"audio_url,omitempty"`
	Questions []Question `json:"questions" validate:"dive"`
}

type ReadingPassage struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	Questions []Question `json:"questions" validate:"dive"`
}

// WritingTask is answered as a whole and occupies one question number.
type WritingTask struct {
	ID       string `json:"id"`
	Prompt   string `json:"prompt" validate:"required"`
	MinWords int    `json:"min_words,omitempty" validate:"min=0"`
}

type ListeningSection struct {
	Parts []ListeningPart `json:"parts" validate:"dive"`
}

type ReadingSection struct {
	Passages []ReadingPassage `json:"passages" validate:"dive"`
}

type WritingSection struct {
	Tasks []WritingTask `json:"tasks" validate:"dive"`
}

type ExamConfiguration struct {
	ID              string       `json:"id"`
	Title           string       `json:"title" validate:"required,min=1,max=200"`
	Category        ExamCategory `json:"category" validate:"required,exam_category"`
	DurationMinutes int          `json:"duration_minutes" validate:"gt=0"`
	Status          ExamStatus   `json:"status" validate:"omitempty,exam_status"`
	CreatedAt       time.Time    `json:"created_at"`
	PublishedAt     *time.Time   `json:"published_at,omitempty"`

	Listening ListeningSection `json:"listening"`
	Reading   ReadingSection   `json:"reading"`
	Writing   WritingSection   `json:"writing"`
}

func (e ExamConfiguration) GetID() string { return e.ID }

func (e ExamConfiguration) WithID(id string) ExamConfiguration {
	e.ID = id
	return e
}

func (e ExamConfiguration) IsPublished() bool {
	return e.Status == ExamPublished
}

// Duration returns the total time allowed for one attempt.
func (e ExamConfiguration) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// QuestionSlot is one numbered answer slot of an exam.
type QuestionSlot struct {
	Number     int         `json:"number"`
	Section    SectionKind `json:"section"`
	QuestionID string      `json:"question_id"`
}

// QuestionSlots numbers every question of the exam contiguously from 1,
// listening first, then reading, then writing tasks.
func (e ExamConfiguration) QuestionSlots() []QuestionSlot {
	var slots []QuestionSlot
	add := func(section SectionKind, id string) {
		slots = append(slots, QuestionSlot{Number: len(slots) + 1, Section: section, QuestionID: id})
	}

	for _, part := range e.Listening.Parts {
		for _, q := range part.Questions {
			add(SectionListening, q.ID)
		}
	}
	for _, passage := range e.Reading.Passages {
		for _, q := range passage.Questions {
			add(SectionReading, q.ID)
		}
	}
	for _, task := range e.Writing.Tasks {
		add(SectionWriting, task.ID)
	}
	return slots
}

func (e ExamConfiguration) QuestionCount() int {
	n := len(e.Writing.Tasks)
	for _, part := range e.Listening.Parts {
		n += len(part.Questions)
	}
	for _, passage := range e.Reading.Passages {
		n += len(passage.Questions)
	}
	return n
}
