package export

import (
	"context"
	"fmt"

	"campusfind/internal/store"
)

// DataStore defines the data access the exporter needs
type DataStore interface {
	GetItem(ctx context.Context, itemID string) (store.Item, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	ListItemMessages(ctx context.Context, itemID string) ([]store.ItemMessage, error)
}

// Service renders item reports
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an item report in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	item, err := s.store.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	data := TemplateData{
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Location:    item.Location,
		Status:      item.Status,
		ClaimStatus: item.ClaimStatus,
		CreatedAt:   item.CreatedAt,
	}

	if item.ReportedBy != "" {
		if reporter, err := s.store.GetUserByID(ctx, item.ReportedBy); err == nil {
			data.ReportedBy = reporter.Name
		}
	}
	switch {
	case item.ClaimedByID != "":
		if claimer, err := s.store.GetUserByID(ctx, item.ClaimedByID); err == nil {
			data.ClaimedBy = claimer.Name
		}
	case item.ClaimedByName != "":
		data.ClaimedBy = item.ClaimedByName
	}

	if req.IncludeThread {
		messages, err := s.store.ListItemMessages(ctx, req.ItemID)
		if err != nil {
			return nil, fmt.Errorf("list item messages: %w", err)
		}
		for _, m := range messages {
			data.Messages = append(data.Messages, TemplateMessage{
				Author: m.SenderName,
				Body:   m.Body,
				SentAt: m.CreatedAt,
			})
		}
	}

	html, err := RenderReportHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(html, item.Title)
	case FormatDOCX:
		return exportDOCX(html, item.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
