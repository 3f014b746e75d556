package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hades874/Super-CMS-sub001/internal/events"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/validator"
	"github.com/xuri/excelize/v2"
)

const questionSheet = "Questions"

// Spreadsheet columns, in export order. Imports locate columns by header
// name, so their order is free.
var questionColumns = []string{
	"id", "type", "text", "options", "correct",
	"subject", "topic", "class", "difficulty", "question_index",
}

type importExportService struct {
	questions repositories.QuestionRepository
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *ServiceLogger
	now       func() time.Time
}

func NewImportExportService(
	questions repositories.QuestionRepository,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) ImportExportService {
	return &importExportService{
		questions: questions,
		publisher: publisher,
		validator: validator,
		logger:    NewServiceLogger(logger, LogConfig{Service: "exam-content", Component: "import_export"}),
		now:       time.Now,
	}
}

// ===== EXPORT OPERATIONS =====

func (s *importExportService) ExportQuestionsToExcel(ctx context.Context, req models.ExportRequest) (data []byte, err error) {
	op := s.logger.WithOperation(ctx, "export_questions")
	defer func() { op.LogResult("", "question_sheet", err) }()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", questionSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	header := make([]interface{}, len(questionColumns))
	for i, column := range questionColumns {
		header[i] = column
	}
	if err := f.SetSheetRow(questionSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	for _, q := range s.questions.All(ctx) {
		if !req.Matches(q) {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		values := questionToRow(q)
		if err := f.SetSheetRow(questionSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// ===== IMPORT OPERATIONS =====

// ImportQuestionsFromExcel reads the first sheet. Rows that fail to parse
// or validate are reported and skipped; the rest are added in one write.
func (s *importExportService) ImportQuestionsFromExcel(ctx context.Context, reader io.Reader) (summary *models.ImportSummary, err error) {
	op := s.logger.WithOperation(ctx, "import_questions")
	defer func() { op.LogResult("", "question_sheet", err) }()

	started := s.now()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewValidationError("file", "not a readable xlsx file", err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrImportFileEmpty
	}

	headerMap := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, required := range []string{"type", "text"} {
		if _, ok := headerMap[required]; !ok {
			return nil, NewValidationError("file", fmt.Sprintf("missing %q column", required), nil)
		}
	}

	summary = &models.ImportSummary{
		CreatedQuestions: []string{},
		Errors:           []models.ImportValidationError{},
	}

	var valid []models.Question
	for i, record := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(record) {
			continue
		}
		summary.TotalRows++

		q, rowErr := parseQuestionRow(record, headerMap, rowNum)
		if rowErr == nil {
			q.CreatedAt = started
			if vErr := s.validator.Validate(&q); vErr != nil {
				rowErr = &models.ImportValidationError{Row: rowNum, Message: vErr.Error(), Code: "invalid_question"}
			}
		}
		if rowErr != nil {
			summary.ErrorCount++
			summary.Errors = append(summary.Errors, *rowErr)
			continue
		}
		valid = append(valid, q)
	}

	if len(valid) > 0 {
		created, err := s.questions.AddMany(ctx, valid)
		if err != nil {
			return nil, fmt.Errorf("failed to save questions: %w", err)
		}
		for _, q := range created {
			summary.CreatedQuestions = append(summary.CreatedQuestions, q.ID)
		}
		summary.SuccessCount = len(created)
		summary.SkippedCount = len(valid) - len(created)

		event := events.NewQuestionsImportedEvent("xlsx", created, summary.ErrorCount)
		if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
			s.logger.Logger().Warn("Failed to publish questions imported event", "error", err)
		}
	}
	summary.ProcessingTime = s.now().Sub(started)

	s.logger.Logger().Info("Excel import completed",
		"total_rows", summary.TotalRows,
		"success_count", summary.SuccessCount,
		"skipped_count", summary.SkippedCount,
		"error_count", summary.ErrorCount)

	return summary, nil
}

// ===== ROW CONVERSION =====

func questionToRow(q models.Question) []interface{} {
	options := make([]string, len(q.Options))
	for i, o := range q.Options {
		options[i] = o.Text
	}

	var correct []string
	switch {
	case q.Type == models.FillInBlank && len(q.Blanks) > 0:
		correct = q.Blanks[0].Answers
	default:
		for _, o := range q.CorrectOptions() {
			correct = append(correct, o.Text)
		}
	}

	index := ""
	if q.QuestionIndex != nil {
		index = strconv.Itoa(*q.QuestionIndex)
	}

	return []interface{}{
		q.ID,
		string(q.Type),
		q.Text,
		strings.Join(options, models.ClassificationSeparator),
		strings.Join(correct, models.ClassificationSeparator),
		q.Subject.Format(),
		q.Topic.Format(),
		q.Class.Format(),
		q.Difficulty.Format(),
		index,
	}
}

func parseQuestionRow(record []string, headerMap map[string]int, rowNum int) (models.Question, *models.ImportValidationError) {
	column := func(name string) string {
		if index, ok := headerMap[name]; ok && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}
	fail := func(col, message, value string) (models.Question, *models.ImportValidationError) {
		return models.Question{}, &models.ImportValidationError{
			Row: rowNum, Column: col, Message: message, Value: value, Code: "invalid_" + col,
		}
	}

	q := models.Question{
		ID:         column("id"),
		Type:       models.QuestionType(strings.ToLower(column("type"))),
		Text:       column("text"),
		Subject:    models.ParseClassification(column("subject")),
		Topic:      models.ParseClassification(column("topic")),
		Class:      models.ParseClassification(column("class")),
		Difficulty: models.ParseClassification(column("difficulty")),
	}
	if q.Type == "" {
		return fail("type", "required field", "")
	}
	if q.Text == "" {
		return fail("text", "required field", "")
	}

	if raw := column("question_index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fail("question_index", "must be a whole number", raw)
		}
		q.QuestionIndex = &n
	}

	correct := splitCell(column("correct"))
	switch {
	case q.Type == models.TableCompletion:
		return fail("type", "table questions cannot be imported from a spreadsheet", string(q.Type))
	case q.Type == models.FillInBlank:
		q.Blanks = []models.Blank{{ID: "1", Answers: correct}}
	case q.Type == models.TrueFalseNotGiven:
		q.Options = buildOptions(models.TrueFalseNotGivenOptions, correct)
	case q.Type.UsesOptions():
		q.Options = buildOptions(splitCell(column("options")), correct)
	}
	return q, nil
}

func buildOptions(texts, correct []string) []models.Option {
	options := make([]models.Option, len(texts))
	for i, text := range texts {
		options[i] = models.Option{
			ID:        string(rune('a' + i)),
			Text:      text,
			IsCorrect: containsFold(correct, text),
		}
	}
	return options
}

func splitCell(raw string) []string {
	var values []string
	for _, v := range strings.Split(raw, models.ClassificationSeparator) {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func isBlankRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
