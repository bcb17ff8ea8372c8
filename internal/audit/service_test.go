package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	rows       []Record
	lastLimit  int
	lastOffset int
}

func (s *stubTimelineRepo) Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Record, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	if limit > len(s.rows) {
		limit = len(s.rows)
	}
	return s.rows[:limit], nil
}

func timelineRow(id int64, action string) Record {
	return Record{ID: id, ActorEmail: "admin@example.com", Action: action, TargetTable: "profiles", OccurredAt: time.Now()}
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []Record{
		timelineRow(3, ActionUpdate),
		timelineRow(2, ActionCreate),
		timelineRow(1, ActionDelete),
	}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Equal(t, 3, repo.lastLimit)
	require.Equal(t, 0, repo.lastOffset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)

	_, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 51, repo.lastLimit)
	require.Equal(t, 50, repo.lastOffset)
}
