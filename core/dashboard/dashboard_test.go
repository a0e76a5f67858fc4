package dashboard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coachdesk/core/cache"
	"github.com/trezcool/coachdesk/core/dashboard"
	"github.com/trezcool/coachdesk/core/listing"
	cachesvc "github.com/trezcool/coachdesk/services/cache"
	"github.com/trezcool/coachdesk/tests"
)

type fakeRepo struct {
	calls      int
	pendingErr error
	coursesErr error
}

func (r *fakeRepo) CountStudents(context.Context) (int, error) {
	r.calls++
	return 4, nil
}

func (r *fakeRepo) TotalFeesCollected(context.Context) (float64, error) { return 1000, nil }

func (r *fakeRepo) TotalPendingFees(context.Context) (float64, error) { return 250, r.pendingErr }

func (r *fakeRepo) PopularCourses(context.Context) ([]dashboard.PopularCourse, error) {
	if r.coursesErr != nil {
		return nil, r.coursesErr
	}
	return []dashboard.PopularCourse{
		{CourseName: "Mathematics for Beginners", StudentCount: 3},
		{CourseName: "Physics", StudentCount: 1},
	}, nil
}

func newService(repo dashboard.Repository) (*dashboard.Service, *cache.QueryCache) {
	qc := cache.NewQueryCache(cachesvc.NewMemoryStore(), 0, testutil.NewLogger())
	return dashboard.NewService(repo, qc), qc
}

func TestService_Stats(t *testing.T) {
	repo := &fakeRepo{}
	svc, qc := newService(repo)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalStudents)
	assert.Equal(t, listing.FeeCollection{PendingPercentage: 25, CollectedPercentage: 75}, stats.FeeCollection)
	assert.Equal(t, []listing.Point{
		{Label: "Mathematics for Beginners", Value: 3, DisplayLabel: "Mathematics for..."},
		{Label: "Physics", Value: 1, DisplayLabel: "Physics"},
	}, stats.Chart)

	// cached until invalidated
	_, _ = svc.Stats(context.Background())
	assert.Equal(t, 1, repo.calls)
	qc.Invalidate(context.Background(), cache.Dashboard)
	_, _ = svc.Stats(context.Background())
	assert.Equal(t, 2, repo.calls)
}

func TestService_Stats_firstErrorWins(t *testing.T) {
	pendingErr := errors.New("pending rpc failed")
	repo := &fakeRepo{pendingErr: pendingErr, coursesErr: errors.New("courses rpc failed")}
	svc, _ := newService(repo)

	_, err := svc.Stats(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pendingErr))
}
