package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/dashboard"
	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/student"
)

const (
	studentSelect = "*,courses(name)"
	paymentSelect = "*,students(full_name)"
)

var returnRepresentation = map[string]string{"Prefer": "return=representation"}

type (
	joinedName struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	}

	studentDTO struct {
		student.Student
		Course *joinedName `json:"courses"`
	}

	paymentDTO struct {
		payment.Payment
		Student *joinedName `json:"students"`
	}
)

func (dto studentDTO) toStudent() student.Student {
	s := dto.Student
	if dto.Course != nil {
		s.CourseName = null.StringFrom(dto.Course.Name)
	}
	return s
}

func toStudents(dtos []studentDTO) []student.Student {
	students := make([]student.Student, 0, len(dtos))
	for _, dto := range dtos {
		students = append(students, dto.toStudent())
	}
	return students
}

func (dto paymentDTO) toPayment() payment.Payment {
	p := dto.Payment
	if dto.Student != nil {
		p.StudentName = null.StringFrom(dto.Student.FullName)
	}
	return p
}

func toPayments(dtos []paymentDTO) []payment.Payment {
	payments := make([]payment.Payment, 0, len(dtos))
	for _, dto := range dtos {
		payments = append(payments, dto.toPayment())
	}
	return payments
}

// Repository reads & writes the console's rows through PostgREST, acting as the user of the request context.
type Repository struct {
	client *Client
}

var (
	_ student.Repository   = (*Repository)(nil)
	_ course.Repository    = (*Repository)(nil)
	_ payment.Repository   = (*Repository)(nil)
	_ dashboard.Repository = (*Repository)(nil)
)

func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

func (repo *Repository) get(ctx context.Context, table string, query url.Values, out interface{}) error {
	_, err := repo.client.do(ctx, request{api: apiRest, method: http.MethodGet, path: "/" + table, query: query}, out)
	return err
}

func (repo *Repository) write(ctx context.Context, method, table string, query url.Values, body, out interface{}) error {
	_, err := repo.client.do(ctx, request{
		api:     apiRest,
		method:  method,
		path:    "/" + table,
		query:   query,
		body:    body,
		headers: returnRepresentation,
	}, out)
	return err
}

func (repo *Repository) rpc(ctx context.Context, fn string, out interface{}) error {
	_, err := repo.client.do(ctx, request{api: apiRest, method: http.MethodPost, path: "/rpc/" + fn, body: struct{}{}}, out)
	return err
}

// Students

func (repo *Repository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var dtos []studentDTO
	q := url.Values{"select": {studentSelect}, "order": {"created_at.desc"}}
	if err := repo.get(ctx, "students", q, &dtos); err != nil {
		return nil, err
	}
	return toStudents(dtos), nil
}

func (repo *Repository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var dtos []studentDTO
	q := url.Values{"select": {studentSelect}, "id": {eq(id)}}
	if err := repo.get(ctx, "students", q, &dtos); err != nil {
		return student.Student{}, err
	}
	if len(dtos) == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return dtos[0].toStudent(), nil
}

func (repo *Repository) QueryStudentsByCourseID(ctx context.Context, courseID string) ([]student.Student, error) {
	var dtos []studentDTO
	q := url.Values{"select": {studentSelect}, "course_id": {eq(courseID)}, "order": {"full_name"}}
	if err := repo.get(ctx, "students", q, &dtos); err != nil {
		return nil, err
	}
	return toStudents(dtos), nil
}

func (repo *Repository) CreateStudent(ctx context.Context, ns student.NewStudent) (student.Student, error) {
	var dtos []studentDTO
	if err := repo.write(ctx, http.MethodPost, "students", url.Values{"select": {studentSelect}}, ns, &dtos); err != nil {
		return student.Student{}, err
	}
	if len(dtos) == 0 {
		return student.Student{}, errors.New("student not returned")
	}
	return dtos[0].toStudent(), nil
}

func (repo *Repository) UpdateStudentByID(ctx context.Context, id string, us student.UpdateStudent) (student.Student, error) {
	var dtos []studentDTO
	q := url.Values{"select": {studentSelect}, "id": {eq(id)}}
	if err := repo.write(ctx, http.MethodPatch, "students", q, us, &dtos); err != nil {
		return student.Student{}, err
	}
	if len(dtos) == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return dtos[0].toStudent(), nil
}

func (repo *Repository) DeleteStudentByID(ctx context.Context, id string) error {
	var deleted []struct{ ID string }
	q := url.Values{"select": {"id"}, "id": {eq(id)}}
	if err := repo.write(ctx, http.MethodDelete, "students", q, nil, &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return student.ErrNotFound
	}
	return nil
}

// Courses

func (repo *Repository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	err := repo.get(ctx, "courses", url.Values{"select": {"*"}, "order": {"name"}}, &courses)
	return courses, err
}

func (repo *Repository) QueryCoursesWithStudentCount(ctx context.Context) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	err := repo.rpc(ctx, "get_courses_with_student_count", &courses)
	return courses, err
}

func (repo *Repository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var courses []course.Course
	if err := repo.get(ctx, "courses", url.Values{"select": {"*"}, "id": {eq(id)}}, &courses); err != nil {
		return course.Course{}, err
	}
	if len(courses) == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return courses[0], nil
}

func (repo *Repository) CreateCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	var courses []course.Course
	if err := repo.write(ctx, http.MethodPost, "courses", nil, nc, &courses); err != nil {
		return course.Course{}, err
	}
	if len(courses) == 0 {
		return course.Course{}, errors.New("course not returned")
	}
	return courses[0], nil
}

func (repo *Repository) UpdateCourseByID(ctx context.Context, id string, uc course.UpdateCourse) (course.Course, error) {
	var courses []course.Course
	if err := repo.write(ctx, http.MethodPatch, "courses", url.Values{"id": {eq(id)}}, uc, &courses); err != nil {
		return course.Course{}, err
	}
	if len(courses) == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return courses[0], nil
}

func (repo *Repository) DeleteCourseByID(ctx context.Context, id string) error {
	var deleted []struct{ ID string }
	q := url.Values{"select": {"id"}, "id": {eq(id)}}
	if err := repo.write(ctx, http.MethodDelete, "courses", q, nil, &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return course.ErrNotFound
	}
	return nil
}

// Payments

func (repo *Repository) QueryAllPayments(ctx context.Context) ([]payment.Payment, error) {
	var dtos []paymentDTO
	q := url.Values{"select": {paymentSelect}, "order": {"payment_date.desc"}}
	if err := repo.get(ctx, "payments", q, &dtos); err != nil {
		return nil, err
	}
	return toPayments(dtos), nil
}

func (repo *Repository) QueryPaymentsByStudentID(ctx context.Context, studentID string) ([]payment.Payment, error) {
	var dtos []paymentDTO
	q := url.Values{"select": {paymentSelect}, "student_id": {eq(studentID)}, "order": {"payment_date.desc"}}
	if err := repo.get(ctx, "payments", q, &dtos); err != nil {
		return nil, err
	}
	return toPayments(dtos), nil
}

func (repo *Repository) GetPaymentByID(ctx context.Context, id string) (payment.Payment, error) {
	var dtos []paymentDTO
	if err := repo.get(ctx, "payments", url.Values{"select": {paymentSelect}, "id": {eq(id)}}, &dtos); err != nil {
		return payment.Payment{}, err
	}
	if len(dtos) == 0 {
		return payment.Payment{}, payment.ErrNotFound
	}
	return dtos[0].toPayment(), nil
}

func (repo *Repository) CreatePayment(ctx context.Context, np payment.NewPayment) (payment.Payment, error) {
	var dtos []paymentDTO
	if err := repo.write(ctx, http.MethodPost, "payments", url.Values{"select": {paymentSelect}}, np, &dtos); err != nil {
		return payment.Payment{}, err
	}
	if len(dtos) == 0 {
		return payment.Payment{}, errors.New("payment not returned")
	}
	return dtos[0].toPayment(), nil
}

// Dashboard

func (repo *Repository) CountStudents(ctx context.Context) (int, error) {
	hdr, err := repo.client.do(ctx, request{
		api:     apiRest,
		method:  http.MethodHead,
		path:    "/students",
		query:   url.Values{"select": {"id"}},
		headers: map[string]string{"Prefer": "count=exact"},
	}, nil)
	if err != nil {
		return 0, err
	}
	return parseContentRange(hdr.Get("Content-Range"))
}

func (repo *Repository) TotalFeesCollected(ctx context.Context) (float64, error) {
	var total null.Float64
	err := repo.rpc(ctx, "get_total_fees_collected", &total)
	return total.Float64, err
}

func (repo *Repository) TotalPendingFees(ctx context.Context) (float64, error) {
	var total null.Float64
	err := repo.rpc(ctx, "get_total_pending_fees", &total)
	return total.Float64, err
}

func (repo *Repository) PopularCourses(ctx context.Context) ([]dashboard.PopularCourse, error) {
	courses := make([]dashboard.PopularCourse, 0)
	err := repo.rpc(ctx, "get_popular_courses", &courses)
	return courses, err
}

// parseContentRange reads the total of a "0-24/42" or "*/0" range.
func parseContentRange(hdr string) (int, error) {
	i := strings.LastIndex(hdr, "/")
	if i < 0 {
		return 0, core.NewFetchError("count students", errors.Errorf("unexpected Content-Range %q", hdr))
	}
	n, err := strconv.Atoi(hdr[i+1:])
	if err != nil {
		return 0, core.NewFetchError("count students", errors.Wrapf(err, "unexpected Content-Range %q", hdr))
	}
	return n, nil
}
