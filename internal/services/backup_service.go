package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hades874/Super-CMS-sub001/internal/events"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/validator"
)

type backupService struct {
	content   *repositories.ContentRepository
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *ServiceLogger
}

func NewBackupService(
	content *repositories.ContentRepository,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) BackupService {
	return &backupService{
		content:   content,
		publisher: publisher,
		validator: validator,
		logger:    NewServiceLogger(logger, LogConfig{Service: "exam-content", Component: "backup"}),
	}
}

func (s *backupService) Export(ctx context.Context) (data []byte, err error) {
	op := s.logger.WithOperation(ctx, "export_snapshot")
	defer func() { op.LogResult("", "snapshot", err) }()

	return s.content.ExportSnapshot(ctx)
}

// Import replaces the collections with a backup. Every exam in it must
// pass the same checks as one created through the catalog. A rejected
// backup leaves the current content as it was.
func (s *backupService) Import(ctx context.Context, raw []byte) (err error) {
	op := s.logger.WithOperation(ctx, "import_snapshot")
	defer func() { op.LogResult("", "snapshot", err) }()

	if len(raw) == 0 {
		return fmt.Errorf("empty backup: %w", ErrMalformedBackup)
	}
	if err := s.content.ImportSnapshot(ctx, raw, s.checkExams); err != nil {
		return err
	}

	event := events.NewSnapshotRestoredEvent(
		len(s.content.Questions.All(ctx)),
		len(s.content.Exams.All(ctx)),
	)
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Logger().Warn("Failed to publish snapshot restored event", "error", err)
	}
	return nil
}

func (s *backupService) checkExams(snapshot *repositories.Snapshot) error {
	for i := range snapshot.Exams {
		exam := &snapshot.Exams[i]
		if err := s.validator.Question().ValidateExam(exam); err != nil {
			return fmt.Errorf("exam %q: %w", exam.ID, err)
		}
	}
	return nil
}

func (s *backupService) Clear(ctx context.Context) (err error) {
	op := s.logger.WithOperation(ctx, "clear_content")
	defer func() { op.LogResult("", "snapshot", err) }()

	return s.content.ClearAll(ctx)
}
