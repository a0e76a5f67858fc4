package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/dashboard"
	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/student"
)

const popularCoursesLimit = 5

var (
	errUnknownCourse  = core.NewValidationError(errors.New("course does not exist"))
	errUnknownStudent = core.NewValidationError(errors.New("student does not exist"))
)

// Repository implements every data repository of the console over a DB.
type Repository struct {
	db *DB
}

var (
	_ student.Repository   = (*Repository)(nil) // interface compliance checks
	_ course.Repository    = (*Repository)(nil)
	_ payment.Repository   = (*Repository)(nil)
	_ dashboard.Repository = (*Repository)(nil)
)

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Students

// joinStudent fills the joined course name. The caller holds the lock.
func (repo *Repository) joinStudent(s student.Student) student.Student {
	s.CourseName = null.String{}
	if s.CourseID.Valid {
		if c, ok := repo.db.courses.get(s.CourseID.String); ok {
			s.CourseName = null.StringFrom(c.Name)
		}
	}
	return s
}

func (repo *Repository) QueryAllStudents(context.Context) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := repo.db.students.all()
	students := make([]student.Student, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- { // newest first
		students = append(students, repo.joinStudent(rows[i]))
	}
	return students, nil
}

func (repo *Repository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	s, ok := repo.db.students.get(id)
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return repo.joinStudent(s), nil
}

func (repo *Repository) QueryStudentsByCourseID(_ context.Context, courseID string) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0)
	for _, s := range repo.db.students.all() {
		if s.CourseID.Valid && s.CourseID.String == courseID {
			students = append(students, repo.joinStudent(s))
		}
	}
	sort.SliceStable(students, func(i, j int) bool { return students[i].FullName < students[j].FullName })
	return students, nil
}

func (repo *Repository) checkCourse(courseID null.String) error {
	if !courseID.Valid {
		return nil
	}
	if _, ok := repo.db.courses.get(courseID.String); !ok {
		return errUnknownCourse
	}
	return nil
}

func (repo *Repository) CreateStudent(_ context.Context, ns student.NewStudent) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkCourse(ns.CourseID); err != nil {
		return student.Student{}, err
	}
	s := student.Student{
		ID:        uuid.NewString(),
		CreatedAt: repo.db.now(),
	}
	setStudent(&s, ns)
	repo.db.students.insert(s.ID, s)
	return repo.joinStudent(s), nil
}

func (repo *Repository) UpdateStudentByID(_ context.Context, id string, us student.UpdateStudent) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	row, ok := repo.db.students.rows[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if err := repo.checkCourse(us.CourseID); err != nil {
		return student.Student{}, err
	}
	setStudent(row, us)
	return repo.joinStudent(*row), nil
}

func setStudent(s *student.Student, ns student.NewStudent) {
	s.FullName = ns.FullName
	s.ParentName = ns.ParentName
	s.Address = ns.Address
	s.ContactNumber = ns.ContactNumber
	s.CourseID = ns.CourseID
	s.Fees = ns.Fees
	s.EnrollmentDate = ns.EnrollmentDate
	s.FeesStatus = ns.FeesStatus
}

// DeleteStudentByID also deletes the student's payments.
func (repo *Repository) DeleteStudentByID(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.students.delete(id) {
		return student.ErrNotFound
	}
	for _, p := range repo.db.payments.all() {
		if p.StudentID == id {
			repo.db.payments.delete(p.ID)
		}
	}
	return nil
}

// Courses

func (repo *Repository) sortedCourses() []course.Course {
	courses := repo.db.courses.all()
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses
}

func (repo *Repository) studentCounts() map[string]int {
	counts := make(map[string]int)
	for _, s := range repo.db.students.all() {
		if s.CourseID.Valid {
			counts[s.CourseID.String]++
		}
	}
	return counts
}

func (repo *Repository) QueryAllCourses(context.Context) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.sortedCourses(), nil
}

func (repo *Repository) QueryCoursesWithStudentCount(context.Context) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := repo.studentCounts()
	courses := repo.sortedCourses()
	for i := range courses {
		courses[i].StudentCount = null.IntFrom(counts[courses[i].ID])
	}
	return courses, nil
}

func (repo *Repository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	c, ok := repo.db.courses.get(id)
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo *Repository) CreateCourse(_ context.Context, nc course.NewCourse) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c := course.Course{
		ID:          uuid.NewString(),
		CreatedAt:   repo.db.now(),
		Name:        nc.Name,
		Duration:    nc.Duration,
		Fees:        nc.Fees,
		Description: nc.Description,
	}
	repo.db.courses.insert(c.ID, c)
	return c, nil
}

func (repo *Repository) UpdateCourseByID(_ context.Context, id string, uc course.UpdateCourse) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	row, ok := repo.db.courses.rows[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	row.Name = uc.Name
	row.Duration = uc.Duration
	row.Fees = uc.Fees
	row.Description = uc.Description
	return *row, nil
}

// DeleteCourseByID unassigns the course's students.
func (repo *Repository) DeleteCourseByID(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.courses.delete(id) {
		return course.ErrNotFound
	}
	for _, s := range repo.db.students.rows {
		if s.CourseID.Valid && s.CourseID.String == id {
			s.CourseID = null.String{}
		}
	}
	return nil
}

// Payments

func (repo *Repository) joinPayment(p payment.Payment) payment.Payment {
	p.StudentName = null.String{}
	if s, ok := repo.db.students.get(p.StudentID); ok {
		p.StudentName = null.StringFrom(s.FullName)
	}
	return p
}

// sortedPayments returns the matching payments, latest payment date first.
func (repo *Repository) sortedPayments(keep func(payment.Payment) bool) []payment.Payment {
	rows := repo.db.payments.all()
	payments := make([]payment.Payment, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if keep(rows[i]) {
			payments = append(payments, repo.joinPayment(rows[i]))
		}
	}
	// dates are YYYY-MM-DD: lexical order is chronological
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].PaymentDate > payments[j].PaymentDate })
	return payments
}

func (repo *Repository) QueryAllPayments(context.Context) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.sortedPayments(func(payment.Payment) bool { return true }), nil
}

func (repo *Repository) QueryPaymentsByStudentID(_ context.Context, studentID string) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.sortedPayments(func(p payment.Payment) bool { return p.StudentID == studentID }), nil
}

func (repo *Repository) GetPaymentByID(_ context.Context, id string) (payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	p, ok := repo.db.payments.get(id)
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	return repo.joinPayment(p), nil
}

func (repo *Repository) CreatePayment(_ context.Context, np payment.NewPayment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students.get(np.StudentID); !ok {
		return payment.Payment{}, errUnknownStudent
	}
	p := payment.Payment{
		ID:          uuid.NewString(),
		CreatedAt:   repo.db.now(),
		StudentID:   np.StudentID,
		Amount:      np.Amount,
		PaymentDate: np.PaymentDate,
		Notes:       np.Notes,
	}
	repo.db.payments.insert(p.ID, p)
	return repo.joinPayment(p), nil
}

// Dashboard

func (repo *Repository) CountStudents(context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.students.ids), nil
}

func (repo *Repository) TotalFeesCollected(context.Context) (float64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return payment.Total(repo.db.payments.all()), nil
}

// TotalPendingFees sums what is left to pay by the students whose fees are not fully paid.
func (repo *Repository) TotalPendingFees(context.Context) (float64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	paid := make(map[string]float64)
	for _, p := range repo.db.payments.all() {
		paid[p.StudentID] += p.Amount
	}
	var pending float64
	for _, s := range repo.db.students.all() {
		if s.FeesStatus == student.FeesPaid {
			continue
		}
		if left := s.Fees - paid[s.ID]; left > 0 {
			pending += left
		}
	}
	return pending, nil
}

func (repo *Repository) PopularCourses(context.Context) ([]dashboard.PopularCourse, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := repo.studentCounts()
	popular := make([]dashboard.PopularCourse, 0)
	for _, c := range repo.sortedCourses() {
		if n := counts[c.ID]; n > 0 {
			popular = append(popular, dashboard.PopularCourse{CourseName: c.Name, StudentCount: n})
		}
	}
	sort.SliceStable(popular, func(i, j int) bool { return popular[i].StudentCount > popular[j].StudentCount })
	if len(popular) > popularCoursesLimit {
		popular = popular[:popularCoursesLimit]
	}
	return popular, nil
}
