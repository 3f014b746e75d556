package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		normalize []string
		multiple  bool
	}{
		{"single", `"Physics"`, []string{"Physics"}, false},
		{"list", `["Physics","Chemistry"]`, []string{"Physics", "Chemistry"}, true},
		{"null", `null`, []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Classification
			require.NoError(t, json.Unmarshal([]byte(tt.input), &c))
			assert.Equal(t, tt.normalize, c.Normalize())
			assert.Equal(t, tt.multiple, c.IsMultiple())

			out, err := json.Marshal(c)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}

	var c Classification
	assert.Error(t, json.Unmarshal([]byte(`42`), &c))
}

func TestQuestionOmitsUnsetClassification(t *testing.T) {
	q := Question{ID: "q1", Text: "2+2?", Type: ShortAnswer, Topic: Multiple("math", "arithmetic")}

	out, err := json.Marshal(q)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(out, &raw))
	assert.NotContains(t, raw, "subject")
	assert.Equal(t, []any{"math", "arithmetic"}, raw["topic"])
}

func TestParseClassification(t *testing.T) {
	assert.Equal(t, Single("Grammar"), ParseClassification(" Grammar "))
	assert.Equal(t, []string{"Grammar", "Vocabulary"}, ParseClassification("Grammar| Vocabulary |").Normalize())
	assert.Equal(t, "Grammar|Vocabulary", Multiple("Grammar", "Vocabulary").Format())
	assert.True(t, ParseClassification("").IsZero())
}

func TestAnswerJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Answer
		empty bool
	}{
		{"absent", `null`, NoAnswer, true},
		{"text", `"B"`, TextAnswer("B"), false},
		{"blank text", `""`, TextAnswer(""), true},
		{"list", `["A","C"]`, ListAnswer("A", "C"), false},
		{"empty list", `[]`, ListAnswer(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Answer
			require.NoError(t, json.Unmarshal([]byte(tt.input), &a))
			assert.True(t, tt.want.Equal(a))
			assert.Equal(t, tt.empty, a.IsEmpty())
		})
	}
}

func TestExamAttemptRoundTrip(t *testing.T) {
	attempt := ExamAttempt{
		ID:            "a1",
		ExamID:        "E1",
		QuestionCount: 2,
		Statuses:      map[int]QuestionStatus{1: StatusReview, 2: StatusUnanswered},
		Answers:       map[int]Answer{1: TextAnswer("B"), 2: NoAnswer},
	}

	out, err := json.Marshal(attempt)
	require.NoError(t, err)

	var decoded ExamAttempt
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, StatusReview, decoded.Statuses[1])
	assert.Equal(t, "B", decoded.Answers[1].Text())
	assert.True(t, decoded.Answers[2].IsEmpty())
	assert.Equal(t, 1, decoded.CountByStatus(nil)[StatusUnanswered])
}

func TestQuestionSlots(t *testing.T) {
	exam := ExamConfiguration{
		Listening: ListeningSection{Parts: []ListeningPart{
			{Questions: []Question{{ID: "l1"}, {ID: "l2"}}},
		}},
		Reading: ReadingSection{Passages: []ReadingPassage{
			{Questions: []Question{{ID: "r1"}}},
			{Questions: []Question{{ID: "r2"}, {ID: "r3"}}},
		}},
		Writing: WritingSection{Tasks: []WritingTask{{ID: "w1", Prompt: "Describe"}}},
	}

	slots := exam.QuestionSlots()
	require.Len(t, slots, 6)
	assert.Equal(t, 6, exam.QuestionCount())

	for i, slot := range slots {
		assert.Equal(t, i+1, slot.Number)
	}
	assert.Equal(t, SectionListening, slots[1].Section)
	assert.Equal(t, "r1", slots[2].QuestionID)
	assert.Equal(t, SectionWriting, slots[5].Section)
}

func TestExportRequestMatches(t *testing.T) {
	q := Question{ID: "q1", Type: MultipleChoice, Subject: Multiple("English", "Reading")}

	assert.True(t, ExportRequest{}.Matches(q))
	assert.True(t, ExportRequest{Subject: "reading"}.Matches(q))
	assert.False(t, ExportRequest{QuestionTypes: []QuestionType{Essay}}.Matches(q))
	assert.False(t, ExportRequest{IDs: []string{"q2"}}.Matches(q))
}
