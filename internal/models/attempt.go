package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

type QuestionStatus string

const (
	StatusUnanswered QuestionStatus = "unanswered"
	StatusAnswered   QuestionStatus = "answered"
	StatusReview     QuestionStatus = "review"
)

type EndReason string

const (
	EndReasonSubmitted EndReason = "submitted"
	EndReasonTimeOut   EndReason = "time_out"
)

// Answer is the value held by one answer slot: absent, a single string or a
// list of strings.
type Answer struct {
	values  []string
	list    bool
	present bool
}

// NoAnswer is the value of a slot that was never written.
var NoAnswer = Answer{}

func TextAnswer(value string) Answer {
	return Answer{values: []string{value}, present: true}
}

func ListAnswer(values ...string) Answer {
	return Answer{values: append([]string{}, values...), list: true, present: true}
}

// IsEmpty reports whether the slot carries no usable answer. Blank strings
// and empty lists count as empty.
func (a Answer) IsEmpty() bool {
	if !a.present {
		return true
	}
	for _, v := range a.values {
		if v != "" {
			return false
		}
	}
	return true
}

func (a Answer) Text() string {
	if a.list || len(a.values) == 0 {
		return ""
	}
	return a.values[0]
}

func (a Answer) Values() []string {
	return append([]string(nil), a.values...)
}

func (a Answer) Equal(other Answer) bool {
	return a.present == other.present && a.list == other.list && slices.Equal(a.values, other.values)
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch {
	case !a.present:
		return []byte("null"), nil
	case a.list:
		return json.Marshal(a.values)
	default:
		return json.Marshal(a.Text())
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = NoAnswer
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*a = ListAnswer(list...)
	default:
		return fmt.Errorf("answer must be a string, a list of strings or null, got %s", data)
	}
	return nil
}

// ExamAttempt is the record of one learner's run through an exam. Every
// question number from 1 to QuestionCount has exactly one status and one
// answer slot.
type ExamAttempt struct {
	ID              string                 `json:"id"`
	ExamID          string                 `json:"exam_id"`
	ExamTitle       string                 `json:"exam_title,omitempty"`
	StartedAt       time.Time              `json:"started_at"`
	FinalizedAt     *time.Time             `json:"finalized_at,omitempty"`
	EndReason       EndReason              `json:"end_reason,omitempty"`
	DurationSeconds int                    `json:"duration_seconds"`
	TimeLeft        int                    `json:"time_left"`
	QuestionCount   int                    `json:"question_count"`
	Statuses        map[int]QuestionStatus `json:"statuses"`
	Answers         map[int]Answer         `json:"answers"`
}

func (a ExamAttempt) GetID() string { return a.ID }

func (a ExamAttempt) WithID(id string) ExamAttempt {
	a.ID = id
	return a
}

func (a ExamAttempt) IsFinalized() bool {
	return a.FinalizedAt != nil
}

// CountByStatus tallies the statuses of the given question numbers, or of
// every slot when numbers is nil.
func (a ExamAttempt) CountByStatus(numbers []int) map[QuestionStatus]int {
	counts := map[QuestionStatus]int{
		StatusUnanswered: 0,
		StatusAnswered:   0,
		StatusReview:     0,
	}
	if numbers == nil {
		for _, s := range a.Statuses {
			counts[s]++
		}
		return counts
	}
	for _, n := range numbers {
		if s, ok := a.Statuses[n]; ok {
			counts[s]++
		}
	}
	return counts
}
