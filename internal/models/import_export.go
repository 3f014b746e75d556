package models

import "time"

type ImportSummary struct {
	TotalRows        int                     `json:"total_rows"`
	SuccessCount     int                     `json:"success_count"`
	SkippedCount     int                     `json:"skipped_count"`
	ErrorCount       int                     `json:"error_count"`
	CreatedQuestions []string                `json:"created_questions"`
	Errors           []ImportValidationError `json:"errors"`
	ProcessingTime   time.Duration           `json:"processing_time"`
}

type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
	Code    string `json:"code"`
}

type ExportRequest struct {
	IDs           []string       `json:"ids" form:"ids"`
	QuestionTypes []QuestionType `json:"question_types" form:"type"`
	Subject       string         `json:"subject" form:"subject"`
}

// Matches reports whether q passes the request's filters.
func (r ExportRequest) Matches(q Question) bool {
	if len(r.IDs) > 0 && !containsString(r.IDs, q.ID) {
		return false
	}
	if len(r.QuestionTypes) > 0 {
		found := false
		for _, t := range r.QuestionTypes {
			if t == q.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if r.Subject != "" && !q.Subject.Contains(r.Subject) {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
