package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"homeroom/internal/models"
	"homeroom/internal/notifications"
	"homeroom/internal/repository"
)

const maxReportReasonLen = 1000

// ReportMessageInput is the input for reporting a message.
type ReportMessageInput struct {
	ReporterID uint
	RoomID     uint
	MessageID  uint
	Reason     string
}

// ReportService records abuse reports and fans out administrator
// notifications. It never applies moderation actions itself; those stay a
// human decision.
type ReportService struct {
	reportRepo  repository.ReportRepository
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	userRepo    repository.UserRepository
	publisher   notifications.Publisher
}

// NewReportService returns a new ReportService.
func NewReportService(
	reportRepo repository.ReportRepository,
	messageRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	publisher notifications.Publisher,
) *ReportService {
	return &ReportService{
		reportRepo:  reportRepo,
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		userRepo:    userRepo,
		publisher:   publisher,
	}
}

// ReportMessage records one report per (message, reporter). The uniqueness
// is enforced by constraint, not just checked: a duplicate surfaces as a
// conflict no matter how the requests interleave.
func (s *ReportService) ReportMessage(ctx context.Context, in ReportMessageInput) (*models.ChatReport, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, models.NewValidationError("Report reason cannot be empty")
	}
	if len(reason) > maxReportReasonLen {
		return nil, models.NewValidationError("Report reason is too long")
	}

	msg, err := s.messageRepo.GetByID(ctx, in.MessageID)
	if err != nil {
		return nil, err
	}
	if msg.RoomID != in.RoomID {
		return nil, models.NewValidationError("Message does not belong to the stated room")
	}
	if msg.SenderID == in.ReporterID {
		return nil, models.NewValidationError("You cannot report your own message")
	}
	member, err := s.roomRepo.IsMember(ctx, in.RoomID, in.ReporterID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewForbiddenError("You are not a member of this room")
	}

	report := &models.ChatReport{
		RoomID:         in.RoomID,
		MessageID:      in.MessageID,
		ReporterID:     in.ReporterID,
		ReportedUserID: msg.SenderID,
		Reason:         reason,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, err
	}

	s.notifyAdmins(ctx, report)
	return report, nil
}

// ListReports returns all reports for admin triage, newest first.
func (s *ReportService) ListReports(ctx context.Context, limit, offset int) ([]models.ChatReport, error) {
	return s.reportRepo.ListAll(ctx, limit, offset)
}

// ListNotifications returns the caller's notifications.
func (s *ReportService) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	return s.reportRepo.ListNotifications(ctx, userID, unreadOnly)
}

// MarkNotificationRead marks one of the caller's notifications read.
func (s *ReportService) MarkNotificationRead(ctx context.Context, userID, noteID uint) error {
	return s.reportRepo.MarkNotificationRead(ctx, userID, noteID)
}

// notifyAdmins inserts one notification row per administrator and pushes a
// real-time event to each. Failures here never fail the report itself.
func (s *ReportService) notifyAdmins(ctx context.Context, report *models.ChatReport) {
	adminIDs, err := s.userRepo.AdminIDs(ctx)
	if err != nil {
		slog.WarnContext(ctx, "admin lookup for report fan-out failed", "report_id", report.ID, "error", err)
		return
	}

	body := fmt.Sprintf("New chat report #%d in room %d", report.ID, report.RoomID)
	notes := make([]models.Notification, 0, len(adminIDs))
	for _, id := range adminIDs {
		notes = append(notes, models.Notification{
			UserID:   id,
			Kind:     "chat_report",
			Body:     body,
			ReportID: &report.ID,
		})
	}
	if err := s.reportRepo.CreateNotifications(ctx, notes); err != nil {
		slog.WarnContext(ctx, "report notification insert failed", "report_id", report.ID, "error", err)
		return
	}

	for _, id := range adminIDs {
		_ = s.publisher.PublishUser(ctx, id, notifications.Event{
			Type:    notifications.EventReportNew,
			Payload: map[string]interface{}{"report_id": report.ID},
		})
	}
}
