package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/feed"
	"citypulse/internal/filter"
	"citypulse/internal/metrics"
	"citypulse/internal/models"
	"citypulse/internal/repository"
)

// complaintParams narrow staff complaint lists
var complaintParams = filter.Set{
	{Param: "status", Fields: []string{"status"}, Op: filter.Eq,
		Parse: filter.OneOf(string(models.ComplaintOpen), string(models.ComplaintClosed))},
	{Param: "event", Fields: []string{"event"}, Op: filter.Eq, Parse: filter.ObjectID},
	{Param: "author", Fields: []string{"author"}, Op: filter.Eq, Parse: filter.ObjectID},
}

type ComplaintPage struct {
	Complaints []*models.Complaint
	Count      int64
	Page       feed.Page
}

// ComplaintService - просмотр и закрытие жалоб персоналом
type ComplaintService struct {
	repo  repository.ComplaintStore
	audit *auditor
	cfg   feed.Config
	now   func() time.Time
}

func NewComplaintService(repo repository.ComplaintStore, audit *auditor, cfg feed.Config, now func() time.Time) *ComplaintService {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	return &ComplaintService{repo: repo, audit: audit, cfg: cfg, now: now}
}

// List returns complaints oldest first, optionally filtered by status,
// event and author
func (s *ComplaintService) List(ctx context.Context, user *models.User, values url.Values) (*ComplaintPage, error) {
	if err := requireStaff(user, "review complaints"); err != nil {
		return nil, err
	}
	where, err := complaintParams.Build(values)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, where, values)
}

// ForEvent lists the complaints filed against one event
func (s *ComplaintService) ForEvent(ctx context.Context, user *models.User, event bson.ObjectID, values url.Values) (*ComplaintPage, error) {
	if err := requireStaff(user, "review complaints"); err != nil {
		return nil, err
	}
	narrow, err := complaintParams.Build(values)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, filter.All(filter.F("event", filter.Eq, event), narrow), values)
}

func (s *ComplaintService) page(ctx context.Context, where filter.Cond, values url.Values) (*ComplaintPage, error) {
	page, err := feed.ParsePage(values, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	if err != nil {
		return nil, err
	}
	if where == nil {
		where = filter.All()
	}
	list, err := s.repo.List(ctx, filter.Query{
		Where: where,
		Sort:  []filter.SortKey{filter.Asc("_id")},
		Skip:  page.Skip(),
		Limit: int64(page.PageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	count, err := s.repo.Count(ctx, where)
	if err != nil {
		return nil, fmt.Errorf("failed to count complaints: %w", err)
	}
	return &ComplaintPage{Complaints: list, Count: count, Page: page}, nil
}

// Reply closes an open complaint. A closed complaint is never overwritten.
func (s *ComplaintService) Reply(ctx context.Context, user *models.User, id int64, answer string) (*models.Complaint, error) {
	if err := requireStaff(user, "reply to complaints"); err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, apperr.Validation("answer", "answer is required")
	}
	now := s.now()
	complaint, err := s.repo.Reply(ctx, id, answer, user.ID, now)
	metrics.RecordCommand("reply_complaint", err)
	if err != nil {
		return nil, err
	}

	s.audit.publish(ctx, models.AuditRecord{
		Subject:     models.AuditComplaintReplied,
		EventID:     complaint.EventID.Hex(),
		ComplaintID: complaint.ID,
		ActorID:     user.ID.Hex(),
		Timestamp:   now,
	})
	return complaint, nil
}
