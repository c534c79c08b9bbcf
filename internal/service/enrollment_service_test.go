package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/export"
)

type mockEnrollmentRepo struct {
	enrollments map[int64]models.Enrollment
	pairs       map[string]bool
	summaries   []dto.EnrolledCourse
	progress    map[string]models.Progress
	lessons     map[int64]int64
	total       int
	completed   int
	completedAt map[int64]time.Time
	reviews     map[int64]models.Review
	detail      *dto.CompletionDetail
	nextID      int64
}

func pairKey(studentID string, courseID int64) string {
	return fmt.Sprintf("%s/%d", studentID, courseID)
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, e *models.Enrollment) error {
	key := pairKey(e.StudentID, e.CourseID)
	if m.pairs == nil {
		m.pairs = map[string]bool{}
	}
	if m.pairs[key] {
		return &pq.Error{Code: "23505", Constraint: "enrollments_student_id_course_id_key"}
	}
	m.pairs[key] = true
	m.nextID++
	e.ID = m.nextID
	if m.enrollments == nil {
		m.enrollments = map[int64]models.Enrollment{}
	}
	m.enrollments[e.ID] = *e
	return nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ListSummariesByStudent(ctx context.Context, studentID string) ([]dto.EnrolledCourse, error) {
	return m.summaries, nil
}

func (m *mockEnrollmentRepo) UpsertProgress(ctx context.Context, p *models.Progress) error {
	if m.progress == nil {
		m.progress = map[string]models.Progress{}
	}
	key := fmt.Sprintf("%d/%d", p.EnrollmentID, p.LessonID)
	if prev, ok := m.progress[key]; ok {
		p.Completed = prev.Completed || p.Completed
		p.WatchTime += prev.WatchTime
		if prev.CompletedAt != nil {
			p.CompletedAt = prev.CompletedAt
		}
	}
	m.progress[key] = *p
	return nil
}

func (m *mockEnrollmentRepo) LessonInCourse(ctx context.Context, lessonID, courseID int64) (bool, error) {
	return m.lessons[lessonID] == courseID, nil
}

func (m *mockEnrollmentRepo) CompletionCounts(ctx context.Context, enrollmentID int64) (int, int, error) {
	return m.total, m.completed, nil
}

func (m *mockEnrollmentRepo) MarkCompleted(ctx context.Context, enrollmentID int64, ts time.Time) error {
	if m.completedAt == nil {
		m.completedAt = map[int64]time.Time{}
	}
	if _, ok := m.completedAt[enrollmentID]; !ok {
		m.completedAt[enrollmentID] = ts
	}
	return nil
}

func (m *mockEnrollmentRepo) CreateReview(ctx context.Context, review *models.Review) error {
	if m.reviews == nil {
		m.reviews = map[int64]models.Review{}
	}
	if _, ok := m.reviews[review.EnrollmentID]; ok {
		return &pq.Error{Code: "23505", Constraint: "reviews_enrollment_id_key"}
	}
	review.ID = int64(len(m.reviews) + 1)
	m.reviews[review.EnrollmentID] = *review
	return nil
}

func (m *mockEnrollmentRepo) CompletionDetail(ctx context.Context, enrollmentID int64) (*dto.CompletionDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

type mockCourseReader struct {
	courses map[int64]models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, progressPercent(0, 0))
	assert.Equal(t, 64, progressPercent(42, 27))
	assert.Equal(t, 100, progressPercent(10, 10))
	assert.Equal(t, 50, progressPercent(2, 1))
	assert.Equal(t, 33, progressPercent(3, 1))
	assert.Equal(t, 67, progressPercent(3, 2))
}

func TestEnrollPublishedCourse(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[int64]models.Course{
		3: {ID: 3, Status: models.CourseStatusPublished},
	}}
	svc := NewEnrollmentService(repo, courses, export.NewCertificateRenderer(""), nil, nil)

	enrollment, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: 3})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", enrollment.StudentID)
	assert.NotZero(t, enrollment.ID)
}

func TestEnrollTwiceConflicts(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[int64]models.Course{
		3: {ID: 3, Status: models.CourseStatusPublished},
	}}
	svc := NewEnrollmentService(repo, courses, export.NewCertificateRenderer(""), nil, nil)

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: 3})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: 3})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "already enrolled", appErr.Message)
}

func TestEnrollDraftCourseHidden(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[int64]models.Course{
		3: {ID: 3, Status: models.CourseStatusDraft},
	}}
	svc := NewEnrollmentService(repo, courses, export.NewCertificateRenderer(""), nil, nil)

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{CourseID: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListEnrolledComputesPercent(t *testing.T) {
	repo := &mockEnrollmentRepo{summaries: []dto.EnrolledCourse{
		{EnrollmentID: 1, TotalLessons: 42, CompletedLessons: 27},
		{EnrollmentID: 2, TotalLessons: 0, CompletedLessons: 0},
	}}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, export.NewCertificateRenderer(""), nil, nil)

	list, err := svc.ListEnrolled(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 64, list[0].Progress)
	assert.Equal(t, 0, list[1].Progress)
}

func TestRecordProgressRejectsOtherStudents(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[int64]models.Enrollment{
		1: {ID: 1, StudentID: "stu-1", CourseID: 3},
	}}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, export.NewCertificateRenderer(""), nil, nil)

	_, err := svc.RecordProgress(context.Background(), "stu-2", 1, 9, ProgressRequest{Completed: true})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "no permission", appErr.Message)
	assert.Empty(t, repo.progress)
}

func TestRecordProgressRejectsForeignLesson(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[int64]models.Enrollment{1: {ID: 1, StudentID: "stu-1", CourseID: 3}},
		lessons:     map[int64]int64{9: 4},
	}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, export.NewCertificateRenderer(""), nil, nil)

	_, err := svc.RecordProgress(context.Background(), "stu-1", 1, 9, ProgressRequest{Completed: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecordProgressStampsCompletion(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[int64]models.Enrollment{1: {ID: 1, StudentID: "stu-1", CourseID: 3}},
		lessons:     map[int64]int64{9: 3},
		total:       1,
		completed:   1,
	}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, export.NewCertificateRenderer(""), nil, nil)

	progress, err := svc.RecordProgress(context.Background(), "stu-1", 1, 9, ProgressRequest{Completed: true, WatchTime: 300})
	require.NoError(t, err)
	assert.True(t, progress.Completed)
	require.NotNil(t, progress.CompletedAt)
	assert.Contains(t, repo.completedAt, int64(1))
}

func TestSubmitReviewOncePerEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[int64]models.Enrollment{
		1: {ID: 1, StudentID: "stu-1", CourseID: 3},
	}}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, export.NewCertificateRenderer(""), nil, nil)

	_, err := svc.SubmitReview(context.Background(), "stu-1", 1, ReviewRequest{Rating: 5})
	require.NoError(t, err)

	_, err = svc.SubmitReview(context.Background(), "stu-1", 1, ReviewRequest{Rating: 4})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCertificateRequiresFullCompletion(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[int64]models.Enrollment{1: {ID: 1, StudentID: "stu-1", CourseID: 3}},
		detail: &dto.CompletionDetail{
			EnrollmentID: 1, StudentName: "Ada", CourseTitle: "Go Basics",
			TotalLessons: 10, CompletedLessons: 9,
		},
	}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, export.NewCertificateRenderer(""), nil, nil)

	_, err := svc.Certificate(context.Background(), "stu-1", 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestCertificateRendersOnCompletion(t *testing.T) {
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockEnrollmentRepo{
		enrollments: map[int64]models.Enrollment{1: {ID: 1, StudentID: "stu-1", CourseID: 3}},
		detail: &dto.CompletionDetail{
			EnrollmentID: 1, StudentName: "Ada", CourseTitle: "Go Basics",
			InstructorName: "Grace", CompletedAt: &completedAt,
			TotalLessons: 10, CompletedLessons: 10,
		},
	}
	svc := NewEnrollmentService(repo, &mockCourseReader{}, export.NewCertificateRenderer("EduFlow"), nil, nil)

	pdf, err := svc.Certificate(context.Background(), "stu-1", 1)
	require.NoError(t, err)
	assert.True(t, len(pdf) > 0)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
