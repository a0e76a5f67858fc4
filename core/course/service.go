package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core/cache"
	"github.com/trezcool/coachdesk/core/listing"
)

var ErrNotFound = errors.New("course not found")

// student rows carry the course name, the dashboard ranks courses
var dependents = []string{cache.Courses, cache.Students, cache.Dashboard}

type (
	Repository interface {
		// QueryAllCourses returns the courses ordered by name.
		QueryAllCourses(ctx context.Context) ([]Course, error)
		QueryCoursesWithStudentCount(ctx context.Context) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		UpdateCourseByID(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		DeleteCourseByID(ctx context.Context, id string) error
	}

	Service struct {
		repo  Repository
		cache *cache.QueryCache
		memo  *listing.Memo[Course]
	}
)

func NewService(repo Repository, qc *cache.QueryCache) *Service {
	return &Service{
		repo:  repo,
		cache: qc,
		memo:  listing.NewMemo[Course](),
	}
}

// Query returns the courses matching search (see listing.Filter).
func (svc *Service) Query(ctx context.Context, search string) ([]Course, error) {
	courses, ver, err := cache.Fetch(ctx, svc.cache, cache.Courses, nil, svc.repo.QueryAllCourses)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return svc.memo.Filter(ver, courses, search), nil
}

func (svc *Service) QueryWithStudentCount(ctx context.Context) ([]Course, error) {
	courses, _, err := cache.Fetch(ctx, svc.cache, cache.Courses, []interface{}{"student_count"}, svc.repo.QueryCoursesWithStudentCount)
	return courses, errors.Wrap(err, "querying courses with student count")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	c, _, err := cache.Fetch(ctx, svc.cache, cache.Courses, []interface{}{"id", id}, func(ctx context.Context) (Course, error) {
		return svc.repo.GetCourseByID(ctx, id)
	})
	return c, errors.Wrap(err, "getting course")
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	c, err := svc.repo.CreateCourse(ctx, nc)
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	svc.cache.Invalidate(ctx, dependents...)
	return c, nil
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.repo.UpdateCourseByID(ctx, id, uc)
	if err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	svc.cache.Invalidate(ctx, dependents...)
	return c, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteCourseByID(ctx, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	svc.cache.Invalidate(ctx, dependents...)
	return nil
}
