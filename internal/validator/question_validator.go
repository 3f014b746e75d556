package validator

import (
	"fmt"
	"strings"

	"github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/hades874/Super-CMS-sub001/internal/models"
)

// QuestionValidator handles question-specific validation
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion checks the payload required by the question's type.
// Single-answer questions need exactly one correct option and
// true/false/not-given questions exactly the three fixed options.
func (v *QuestionValidator) ValidateQuestion(q *models.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.NewValidationErrorWithRule("text", "is required", "required", q.Text)
	}

	switch q.Type {
	case models.MultipleChoice:
		return v.validateOptions(q, 2)
	case models.MultipleSelect:
		if err := v.validateOptions(q, 2); err != nil {
			return err
		}
		if len(q.CorrectOptions()) == 0 {
			return errors.NewValidationErrorWithRule("options", "must mark at least one option correct", "correct_options", len(q.Options))
		}
	case models.TrueFalseNotGiven:
		return v.validateTrueFalseNotGiven(q)
	case models.FillInBlank:
		if len(q.Blanks) == 0 {
			return errors.NewValidationErrorWithRule("blanks", "must have at least 1 blank", "min", 0)
		}
		for _, b := range q.Blanks {
			if len(b.Answers) == 0 {
				return errors.NewValidationErrorWithRule("blanks", fmt.Sprintf("blank '%s' must have at least 1 accepted answer", b.ID), "min", b.ID)
			}
		}
	case models.TableCompletion:
		if q.Table == nil || len(q.Table.Headers) == 0 {
			return errors.NewValidationErrorWithRule("table", "must have at least one header", "required", nil)
		}
		for i, row := range q.Table.Rows {
			if len(row) != len(q.Table.Headers) {
				return errors.NewValidationErrorWithRule("table", fmt.Sprintf("row %d has %d cells, expected %d", i+1, len(row), len(q.Table.Headers)), "len", len(row))
			}
		}
	case models.ShortAnswer, models.Essay:
	default:
		return errors.NewValidationErrorWithRule("type", fmt.Sprintf("unsupported question type: %s", q.Type), "question_type", q.Type)
	}
	return nil
}

// ValidateBatch validates multiple questions
func (v *QuestionValidator) ValidateBatch(questions []models.Question) error {
	if len(questions) == 0 {
		return errors.NewValidationErrorWithRule("questions", "batch cannot be empty", "min", 0)
	}

	for i := range questions {
		if err := v.ValidateQuestion(&questions[i]); err != nil {
			return fmt.Errorf("validation failed for question %d: %w", i+1, err)
		}
	}
	return nil
}

// ValidateExam checks the invariants of an exam configuration that span
// several fields, then every question it contains.
func (v *QuestionValidator) ValidateExam(e *models.ExamConfiguration) error {
	if e.DurationMinutes <= 0 {
		return errors.NewValidationErrorWithRule("duration_minutes", "must be greater than 0", "gt", e.DurationMinutes)
	}
	if e.IsPublished() != (e.PublishedAt != nil) {
		return errors.NewValidationErrorWithRule("published_at", "must be set if and only if the exam is published", "published_at", e.PublishedAt)
	}

	for _, part := range e.Listening.Parts {
		if err := v.validateSectionQuestions(models.SectionListening, part.Questions); err != nil {
			return err
		}
	}
	for _, passage := range e.Reading.Passages {
		if err := v.validateSectionQuestions(models.SectionReading, passage.Questions); err != nil {
			return err
		}
	}
	return nil
}

func (v *QuestionValidator) validateSectionQuestions(section models.SectionKind, questions []models.Question) error {
	for i := range questions {
		if err := v.ValidateQuestion(&questions[i]); err != nil {
			return fmt.Errorf("%s question %d: %w", section, i+1, err)
		}
	}
	return nil
}

func (v *QuestionValidator) validateOptions(q *models.Question, min int) error {
	if len(q.Options) < min {
		return errors.NewValidationErrorWithRule("options", fmt.Sprintf("must have at least %d options", min), "min", len(q.Options))
	}
	for _, o := range q.Options {
		if strings.TrimSpace(o.Text) == "" {
			return errors.NewValidationErrorWithRule("options", "option text cannot be empty", "required", o.ID)
		}
	}
	if q.Type.IsSingleAnswer() {
		if n := len(q.CorrectOptions()); n != 1 {
			return errors.NewValidationErrorWithRule("options", fmt.Sprintf("must mark exactly one option correct, got %d", n), "correct_options", n)
		}
	}
	return nil
}

func (v *QuestionValidator) validateTrueFalseNotGiven(q *models.Question) error {
	if len(q.Options) != len(models.TrueFalseNotGivenOptions) {
		return errors.NewValidationErrorWithRule("options", "must have exactly the options True, False and Not Given", "len", len(q.Options))
	}
	for i, want := range models.TrueFalseNotGivenOptions {
		if !strings.EqualFold(q.Options[i].Text, want) {
			return errors.NewValidationErrorWithRule("options", fmt.Sprintf("option %d must be %q", i+1, want), "oneof", q.Options[i].Text)
		}
	}
	return v.validateOptions(q, len(models.TrueFalseNotGivenOptions))
}

// TrueFalseNotGiven builds the three fixed options with the given one
// marked correct.
func TrueFalseNotGiven(correct string) []models.Option {
	options := make([]models.Option, len(models.TrueFalseNotGivenOptions))
	for i, text := range models.TrueFalseNotGivenOptions {
		options[i] = models.Option{
			ID:        strings.ToLower(strings.ReplaceAll(text, " ", "_")),
			Text:      text,
			IsCorrect: strings.EqualFold(text, correct),
		}
	}
	return options
}
