package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/dashboard"
	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/student"
)

// Repository reads & writes the console's rows with SQL, on either the lib/pq or the pgx driver.
type Repository struct {
	db *sqlx.DB
}

var (
	_ student.Repository   = (*Repository)(nil)
	_ course.Repository    = (*Repository)(nil)
	_ payment.Repository   = (*Repository)(nil)
	_ dashboard.Repository = (*Repository)(nil)
)

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// mapError turns integrity violations (foreign keys, checks...) into validation errors carrying the database message.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return core.NewValidationError(errors.New(pqErr.Message))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
		return core.NewValidationError(errors.New(pgErr.Message))
	}
	return err
}

func deleted(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Students

const studentSelect = `
SELECT s.id, s.created_at, s.full_name, s.parent_name, s.address, s.contact_number, s.course_id, c.name AS course_name,
       s.fees::float8 AS fees, s.enrollment_date::text AS enrollment_date, s.fees_status
FROM students s
LEFT JOIN courses c ON c.id = s.course_id`

func (repo *Repository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := repo.db.SelectContext(ctx, &students, studentSelect+` ORDER BY s.created_at DESC`)
	return students, errors.Wrap(err, "selecting students")
}

func (repo *Repository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var s student.Student
	err := repo.db.GetContext(ctx, &s, studentSelect+` WHERE s.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return student.Student{}, student.ErrNotFound
	}
	return s, errors.Wrap(err, "selecting student")
}

func (repo *Repository) QueryStudentsByCourseID(ctx context.Context, courseID string) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := repo.db.SelectContext(ctx, &students, studentSelect+` WHERE s.course_id = $1 ORDER BY s.full_name`, courseID)
	return students, errors.Wrap(err, "selecting course students")
}

func (repo *Repository) CreateStudent(ctx context.Context, ns student.NewStudent) (student.Student, error) {
	var id string
	err := repo.db.GetContext(ctx, &id, `
		INSERT INTO students (full_name, parent_name, address, contact_number, course_id, fees, enrollment_date, fees_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		ns.FullName, ns.ParentName, ns.Address, ns.ContactNumber, ns.CourseID, ns.Fees, ns.EnrollmentDate, ns.FeesStatus,
	)
	if err != nil {
		return student.Student{}, mapError(err)
	}
	return repo.GetStudentByID(ctx, id)
}

func (repo *Repository) UpdateStudentByID(ctx context.Context, id string, us student.UpdateStudent) (student.Student, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE students
		SET full_name = $2, parent_name = $3, address = $4, contact_number = $5, course_id = $6, fees = $7,
		    enrollment_date = $8, fees_status = $9
		WHERE id = $1`,
		id, us.FullName, us.ParentName, us.Address, us.ContactNumber, us.CourseID, us.Fees, us.EnrollmentDate, us.FeesStatus,
	)
	if err != nil {
		return student.Student{}, mapError(err)
	}
	if err := deleted(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return repo.GetStudentByID(ctx, id)
}

func (repo *Repository) DeleteStudentByID(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return deleted(res, student.ErrNotFound)
}

// Courses

const courseSelect = `SELECT id, created_at, name, duration, fees::float8 AS fees, description FROM courses`

func (repo *Repository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	err := repo.db.SelectContext(ctx, &courses, courseSelect+` ORDER BY name`)
	return courses, errors.Wrap(err, "selecting courses")
}

func (repo *Repository) QueryCoursesWithStudentCount(ctx context.Context) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	err := repo.db.SelectContext(ctx, &courses, `
		SELECT id, created_at, name, duration, fees::float8 AS fees, description, student_count
		FROM get_courses_with_student_count()`)
	return courses, errors.Wrap(err, "selecting courses with student count")
}

func (repo *Repository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var c course.Course
	err := repo.db.GetContext(ctx, &c, courseSelect+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return course.Course{}, course.ErrNotFound
	}
	return c, errors.Wrap(err, "selecting course")
}

func (repo *Repository) CreateCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	var c course.Course
	err := repo.db.GetContext(ctx, &c, `
		INSERT INTO courses (name, duration, fees, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, name, duration, fees::float8 AS fees, description`,
		nc.Name, nc.Duration, nc.Fees, nc.Description,
	)
	return c, mapError(err)
}

func (repo *Repository) UpdateCourseByID(ctx context.Context, id string, uc course.UpdateCourse) (course.Course, error) {
	var c course.Course
	err := repo.db.GetContext(ctx, &c, `
		UPDATE courses SET name = $2, duration = $3, fees = $4, description = $5
		WHERE id = $1
		RETURNING id, created_at, name, duration, fees::float8 AS fees, description`,
		id, uc.Name, uc.Duration, uc.Fees, uc.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return course.Course{}, course.ErrNotFound
	}
	return c, mapError(err)
}

func (repo *Repository) DeleteCourseByID(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return deleted(res, course.ErrNotFound)
}

// Payments

const paymentSelect = `
SELECT p.id, p.created_at, p.student_id, s.full_name AS student_name, p.amount::float8 AS amount,
       p.payment_date::text AS payment_date, p.notes
FROM payments p
LEFT JOIN students s ON s.id = p.student_id`

func (repo *Repository) QueryAllPayments(ctx context.Context) ([]payment.Payment, error) {
	payments := make([]payment.Payment, 0)
	err := repo.db.SelectContext(ctx, &payments, paymentSelect+` ORDER BY p.payment_date DESC, p.created_at DESC`)
	return payments, errors.Wrap(err, "selecting payments")
}

func (repo *Repository) QueryPaymentsByStudentID(ctx context.Context, studentID string) ([]payment.Payment, error) {
	payments := make([]payment.Payment, 0)
	err := repo.db.SelectContext(ctx, &payments, paymentSelect+` WHERE p.student_id = $1 ORDER BY p.payment_date DESC`, studentID)
	return payments, errors.Wrap(err, "selecting student payments")
}

func (repo *Repository) GetPaymentByID(ctx context.Context, id string) (payment.Payment, error) {
	var p payment.Payment
	err := repo.db.GetContext(ctx, &p, paymentSelect+` WHERE p.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Payment{}, payment.ErrNotFound
	}
	return p, errors.Wrap(err, "selecting payment")
}

func (repo *Repository) CreatePayment(ctx context.Context, np payment.NewPayment) (payment.Payment, error) {
	var id string
	err := repo.db.GetContext(ctx, &id, `
		INSERT INTO payments (student_id, amount, payment_date, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		np.StudentID, np.Amount, np.PaymentDate, np.Notes,
	)
	if err != nil {
		return payment.Payment{}, mapError(err)
	}
	return repo.GetPaymentByID(ctx, id)
}

// Dashboard

func (repo *Repository) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT count(*) FROM students`)
	return n, errors.Wrap(err, "counting students")
}

func (repo *Repository) TotalFeesCollected(ctx context.Context) (float64, error) {
	var total float64
	err := repo.db.GetContext(ctx, &total, `SELECT get_total_fees_collected()::float8`)
	return total, errors.Wrap(err, "selecting total fees collected")
}

func (repo *Repository) TotalPendingFees(ctx context.Context) (float64, error) {
	var total float64
	err := repo.db.GetContext(ctx, &total, `SELECT get_total_pending_fees()::float8`)
	return total, errors.Wrap(err, "selecting total pending fees")
}

func (repo *Repository) PopularCourses(ctx context.Context) ([]dashboard.PopularCourse, error) {
	courses := make([]dashboard.PopularCourse, 0)
	err := repo.db.SelectContext(ctx, &courses, `SELECT course_name, student_count FROM get_popular_courses()`)
	return courses, errors.Wrap(err, "selecting popular courses")
}
