package validator

import (
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hades874/Super-CMS-sub001/internal/models"
)

// Validator is the main validator instance that combines struct tags with
// the content rules struct tags cannot express.
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs complete validation: struct tags, then the question
// and exam content rules for the types that have them.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		return err
	}

	switch value := s.(type) {
	case *models.Question:
		return v.questionValidator.ValidateQuestion(value)
	case models.Question:
		return v.questionValidator.ValidateQuestion(&value)
	case *models.ExamConfiguration:
		return v.questionValidator.ValidateExam(value)
	case models.ExamConfiguration:
		return v.questionValidator.ValidateExam(&value)
	}
	return nil
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", oneOfValues(models.QuestionTypes))
	validate.RegisterValidation("exam_status", oneOfValues([]models.ExamStatus{models.ExamDraft, models.ExamPublished}))
	validate.RegisterValidation("exam_category", oneOfValues([]models.ExamCategory{models.CategoryAcademic, models.CategoryGeneral}))
	validate.RegisterValidation("content_type", oneOfValues(models.ContentTypes))
	validate.RegisterValidation("assignment_type", oneOfValues(models.AssignmentTypes))

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// oneOfValues builds a validation func accepting exactly the given values.
func oneOfValues[T ~string](valid []T) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(valid, T(fl.Field().String()))
	}
}
