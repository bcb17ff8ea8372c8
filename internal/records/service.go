package records

import (
	"context"
	"fmt"
	"time"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Service handles check-in record business logic.
type Service struct {
	repo  Repository
	audit *audit.Recorder
}

// NewService builds Service instance.
func NewService(repo Repository, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, audit: recorder}
}

// Save bulk-inserts check-in rows and writes one CREATE_BATCH audit
// record for the run.
func (s *Service) Save(ctx context.Context, actor *identity.Principal, inputs []RecordInput) (int, error) {
	if err := authz.Authorize(actor, shared.PermRecordsEdit, nil).Err(); err != nil {
		return 0, err
	}
	inserted, err := s.repo.InsertRecords(ctx, inputs)
	if err != nil {
		return inserted, err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionCreateBatch,
		TargetTable: "check_in_records",
		Description: fmt.Sprintf("bulk insert %d check-in records", inserted),
	})
	return inserted, nil
}

// Delete removes records by id, snapshotting old rows into the trail.
func (s *Service) Delete(ctx context.Context, actor *identity.Principal, ids []int64) error {
	if err := authz.Authorize(actor, shared.PermRecordsEdit, nil).Err(); err != nil {
		return err
	}
	old, err := s.repo.GetRecords(ctx, ids)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRecords(ctx, ids); err != nil {
		return err
	}
	if len(old) > 0 {
		s.audit.Write(ctx, audit.Entry{
			ActorID:     actor.ID,
			Action:      audit.ActionDeleteBatch,
			TargetTable: "check_in_records",
			Description: fmt.Sprintf("bulk delete %d check-in records", len(old)),
			OldValue:    old,
		})
	}
	return nil
}

// ByDate returns one calendar day's records, newest first.
func (s *Service) ByDate(ctx context.Context, actor *identity.Principal, date time.Time) ([]CheckInRecord, error) {
	if err := authz.Authorize(actor, shared.PermRecordsView, nil).Err(); err != nil {
		return nil, err
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1)
	return s.repo.RecordsByRange(ctx, &start, &end)
}

// ByRange returns records inside an optional time window.
func (s *Service) ByRange(ctx context.Context, actor *identity.Principal, from, to *time.Time) ([]CheckInRecord, error) {
	if err := authz.Authorize(actor, shared.PermRecordsView, nil).Err(); err != nil {
		return nil, err
	}
	return s.repo.RecordsByRange(ctx, from, to)
}

// ByEvent returns an event's records in check-in order.
func (s *Service) ByEvent(ctx context.Context, actor *identity.Principal, eventID int64) ([]CheckInRecord, error) {
	if err := authz.Authorize(actor, shared.PermRecordsView, nil).Err(); err != nil {
		return nil, err
	}
	return s.repo.RecordsByEvent(ctx, eventID)
}

// RecentPage is one page of the recent-records feed.
type RecentPage struct {
	Records  []CheckInRecord `json:"records"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	HasNext  bool            `json:"has_next"`
}

// Recent returns the newest records using the limit-plus-one idiom to
// detect a following page.
func (s *Service) Recent(ctx context.Context, actor *identity.Principal, page, pageSize int) (RecentPage, error) {
	if err := authz.Authorize(actor, shared.PermRecordsView, nil).Err(); err != nil {
		return RecentPage{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := (page - 1) * pageSize
	rows, err := s.repo.RecentRecords(ctx, pageSize+1, offset)
	if err != nil {
		return RecentPage{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	return RecentPage{Records: rows, Page: page, PageSize: pageSize, HasNext: hasNext}, nil
}

// DailyStats reads the worker-maintained rollup.
func (s *Service) DailyStats(ctx context.Context, actor *identity.Principal) ([]DailyStat, error) {
	if err := authz.Authorize(actor, shared.PermRecordsView, nil).Err(); err != nil {
		return nil, err
	}
	return s.repo.DailyStats(ctx)
}
