package student

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core/cache"
	"github.com/trezcool/coachdesk/core/listing"
)

var ErrNotFound = errors.New("student not found")

// invalidated by any student change: course counts, payment student names & dashboard figures derive from students
var dependents = []string{cache.Students, cache.Courses, cache.Payments, cache.Dashboard}

type (
	Repository interface {
		// QueryAllStudents returns the students, newest first, with their course name.
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		QueryStudentsByCourseID(ctx context.Context, courseID string) ([]Student, error)
		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		UpdateStudentByID(ctx context.Context, id string, us UpdateStudent) (Student, error)
		DeleteStudentByID(ctx context.Context, id string) error
	}

	Service struct {
		repo  Repository
		cache *cache.QueryCache
		memo  *listing.Memo[Student]
	}
)

func NewService(repo Repository, qc *cache.QueryCache) *Service {
	return &Service{
		repo:  repo,
		cache: qc,
		memo:  listing.NewMemo[Student](),
	}
}

// Query returns the students matching search (see listing.Filter).
func (svc *Service) Query(ctx context.Context, search string) ([]Student, error) {
	students, ver, err := cache.Fetch(ctx, svc.cache, cache.Students, nil, svc.repo.QueryAllStudents)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return svc.memo.Filter(ver, students, search), nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	s, _, err := cache.Fetch(ctx, svc.cache, cache.Students, []interface{}{"id", id}, func(ctx context.Context) (Student, error) {
		return svc.repo.GetStudentByID(ctx, id)
	})
	return s, errors.Wrap(err, "getting student")
}

func (svc *Service) QueryByCourseID(ctx context.Context, courseID string) ([]Student, error) {
	students, _, err := cache.Fetch(ctx, svc.cache, cache.Students, []interface{}{"course", courseID}, func(ctx context.Context) ([]Student, error) {
		return svc.repo.QueryStudentsByCourseID(ctx, courseID)
	})
	return students, errors.Wrap(err, "querying course students")
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	s, err := svc.repo.CreateStudent(ctx, ns)
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	svc.cache.Invalidate(ctx, dependents...)
	return s, nil
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	s, err := svc.repo.UpdateStudentByID(ctx, id, us)
	if err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	svc.cache.Invalidate(ctx, dependents...)
	return s, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteStudentByID(ctx, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	svc.cache.Invalidate(ctx, dependents...)
	return nil
}
