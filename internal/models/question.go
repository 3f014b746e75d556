package models

import (
	"time"
)

type QuestionType string

const (
	MultipleChoice    QuestionType = "multiple-choice"
	MultipleSelect    QuestionType = "multiple-select"
	TrueFalseNotGiven QuestionType = "true-false-not-given"
	FillInBlank       QuestionType = "fill-blank"
	TableCompletion   QuestionType = "table"
	ShortAnswer       QuestionType = "short-answer"
	Essay             QuestionType = "essay"
)

// QuestionTypes lists every supported question type.
var QuestionTypes = []QuestionType{
	MultipleChoice,
	MultipleSelect,
	TrueFalseNotGiven,
	FillInBlank,
	TableCompletion,
	ShortAnswer,
	Essay,
}

// IsSingleAnswer reports whether exactly one option may be marked correct.
func (t QuestionType) IsSingleAnswer() bool {
	return t == MultipleChoice || t == TrueFalseNotGiven
}

// UsesOptions reports whether the type is answered by picking options.
func (t QuestionType) UsesOptions() bool {
	return t == MultipleChoice || t == MultipleSelect || t == TrueFalseNotGiven
}

// Fixed option texts of a true/false/not-given question, in display order.
var TrueFalseNotGivenOptions = []string{"True", "False", "Not Given"}

type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type Blank struct {
	ID      string   `json:"id" validate:"required"`
	Answers []string `json:"answers" validate:"min=1"`
}

type TablePayload struct {
	Headers []string   `json:"headers" validate:"min=1"`
	Rows    [][]string `json:"rows"`
}

type Question struct {
	ID      string        `json:"id"`
	Text    string        `json:"text" validate:"required"`
	Type    QuestionType  `json:"type" validate:"required,question_type"`
	Options []Option      `json:"options,omitempty" validate:"omitempty,dive"`
	Blanks  []Blank       `json:"blanks,omitempty" validate:"omitempty,dive"`
	Table   *TablePayload `json:"table,omitempty"`

	// Classification
	Subject    Classification `json:"subject,omitzero"`
	Topic      Classification `json:"topic,omitzero"`
	Class      Classification `json:"class,omitzero"`
	Difficulty Classification `json:"difficulty,omitzero"`

	QuestionIndex *int      `json:"question_index,omitempty" validate:"omitempty,min=1"`
	CreatedAt     time.Time `json:"created_at"`
}

func (q Question) GetID() string { return q.ID }

func (q Question) WithID(id string) Question {
	q.ID = id
	return q
}

// CorrectOptions returns the options flagged as correct.
func (q Question) CorrectOptions() []Option {
	var correct []Option
	for _, o := range q.Options {
		if o.IsCorrect {
			correct = append(correct, o)
		}
	}
	return correct
}
