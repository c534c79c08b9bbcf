package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
	"github.com/eduflow-app/eduflow-api/internal/repository"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
	"github.com/eduflow-app/eduflow-api/pkg/export"
)

type mockCourseRepo struct {
	courses  map[int64]models.Course
	modules  map[int64]models.Module
	lessons  map[int64]models.Lesson
	updates  []repository.CourseUpdate
	roster   []dto.RosterRow
	enrolled map[string]bool
	live     []models.LiveClass
	nextID   int64
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = map[int64]models.Course{}
	}
	m.nextID++
	course.ID = m.nextID
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Update(ctx context.Context, id int64, update repository.CourseUpdate) error {
	m.updates = append(m.updates, update)
	c, ok := m.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	if update.Title != nil {
		c.Title = *update.Title
	}
	if update.Description != nil {
		c.Description = update.Description
	}
	if update.Price != nil {
		c.Price = *update.Price
	}
	if update.Status != nil {
		c.Status = *update.Status
	}
	if update.PublishedAt != nil {
		c.PublishedAt = update.PublishedAt
	}
	m.courses[id] = c
	return nil
}

func (m *mockCourseRepo) ListByInstructor(ctx context.Context, instructorID string) ([]dto.InstructorCourse, error) {
	var list []dto.InstructorCourse
	for _, c := range m.courses {
		if c.InstructorID == instructorID {
			list = append(list, dto.InstructorCourse{ID: c.ID, Title: c.Title})
		}
	}
	return list, nil
}

func (m *mockCourseRepo) CreateModule(ctx context.Context, module *models.Module) error {
	if m.modules == nil {
		m.modules = map[int64]models.Module{}
	}
	m.nextID++
	module.ID = m.nextID
	if module.Position < 0 {
		module.Position = len(m.modules)
	}
	m.modules[module.ID] = *module
	return nil
}

func (m *mockCourseRepo) FindModule(ctx context.Context, id int64) (*models.Module, error) {
	if mod, ok := m.modules[id]; ok {
		return &mod, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) UpdateModule(ctx context.Context, id int64, title string, position int) error {
	mod, ok := m.modules[id]
	if !ok {
		return sql.ErrNoRows
	}
	mod.Title = title
	mod.Position = position
	m.modules[id] = mod
	return nil
}

func (m *mockCourseRepo) DeleteModule(ctx context.Context, id int64) error {
	delete(m.modules, id)
	return nil
}

func (m *mockCourseRepo) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	if m.lessons == nil {
		m.lessons = map[int64]models.Lesson{}
	}
	m.nextID++
	lesson.ID = m.nextID
	if lesson.Position < 0 {
		lesson.Position = len(m.lessons)
	}
	m.lessons[lesson.ID] = *lesson
	return nil
}

func (m *mockCourseRepo) FindLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	if l, ok := m.lessons[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) DeleteLesson(ctx context.Context, id int64) error {
	delete(m.lessons, id)
	return nil
}

func (m *mockCourseRepo) CreateResource(ctx context.Context, res *models.Resource) error {
	m.nextID++
	res.ID = m.nextID
	return nil
}

func (m *mockCourseRepo) DeleteResource(ctx context.Context, id, courseID int64) error {
	return nil
}

func (m *mockCourseRepo) CreateLiveClass(ctx context.Context, lc *models.LiveClass) error {
	m.nextID++
	lc.ID = m.nextID
	return nil
}

func (m *mockCourseRepo) ListLiveClasses(ctx context.Context, courseID int64) ([]models.LiveClass, error) {
	return m.live, nil
}

func (m *mockCourseRepo) ListRoster(ctx context.Context, courseID int64) ([]dto.RosterRow, error) {
	return m.roster, nil
}

func (m *mockCourseRepo) IsEnrolled(ctx context.Context, studentID string, courseID int64) (bool, error) {
	return m.enrolled[fmt.Sprintf("%s/%d", studentID, courseID)], nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateBrowseCache(ctx context.Context) { m.calls++ }

func instructorClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleInstructor}
}

// courseService wires a CourseService whose stored users are all
// instructors, which is what most authoring tests need.
func courseService(repo *mockCourseRepo, catalog browseCacheInvalidator, userIDs ...string) *CourseService {
	users := map[string]models.User{}
	for _, id := range userIDs {
		users[id] = models.User{ID: id, Role: models.RoleInstructor}
	}
	return NewCourseService(repo, &mockUserRepo{users: users}, repo, catalog, export.NewCSVExporter(), nil, nil)
}

func TestCreateCourseRequiresInstructor(t *testing.T) {
	repo := &mockCourseRepo{}
	users := &mockUserRepo{users: map[string]models.User{
		"stu-1": {ID: "stu-1", Role: models.RoleStudent},
	}}
	svc := NewCourseService(repo, users, repo, nil, export.NewCSVExporter(), nil, nil)

	student := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	_, err := svc.Create(context.Background(), student, CreateCourseRequest{Title: "Go Basics"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "unauthorized", appErr.Message)
	assert.Empty(t, repo.courses)
}

func TestCreateCourseUsesStoredRoleNotToken(t *testing.T) {
	repo := &mockCourseRepo{}
	users := &mockUserRepo{users: map[string]models.User{
		"inst-1": {ID: "inst-1", Role: models.RoleStudent},
	}}
	svc := NewCourseService(repo, users, repo, nil, export.NewCSVExporter(), nil, nil)

	// The token still carries instructor, but the stored row was
	// demoted to student after the token was minted.
	_, err := svc.Create(context.Background(), instructorClaims("inst-1"), CreateCourseRequest{Title: "Go Basics"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "unauthorized", appErr.Message)
	assert.Empty(t, repo.courses)

	_, err = svc.Create(context.Background(), instructorClaims("ghost"), CreateCourseRequest{Title: "Go Basics"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCreateCourseStartsAsDraft(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := courseService(repo, nil, "inst-1")

	course, err := svc.Create(context.Background(), instructorClaims("inst-1"), CreateCourseRequest{Title: "Go Basics"})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusDraft, course.Status)
	assert.Equal(t, "inst-1", course.InstructorID)
	assert.Nil(t, course.PublishedAt)
}

func TestUpdateCourseRejectsNonOwner(t *testing.T) {
	repo := &mockCourseRepo{courses: map[int64]models.Course{
		1: {ID: 1, InstructorID: "inst-1", Title: "Go Basics", Status: models.CourseStatusDraft},
	}}
	svc := courseService(repo, nil, "inst-1", "inst-2")

	title := "Hijacked"
	_, err := svc.Update(context.Background(), instructorClaims("inst-2"), 1, UpdateCourseRequest{Title: &title})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "no permission", appErr.Message)
	assert.Empty(t, repo.updates)
	assert.Equal(t, "Go Basics", repo.courses[1].Title)
}

func TestUpdateCoursePartialKeepsStoredValues(t *testing.T) {
	desc := "original description"
	repo := &mockCourseRepo{courses: map[int64]models.Course{
		1: {ID: 1, InstructorID: "inst-1", Title: "Go Basics", Description: &desc, Price: 49, Status: models.CourseStatusDraft},
	}}
	svc := courseService(repo, nil, "inst-1")

	price := 59.0
	updated, err := svc.Update(context.Background(), instructorClaims("inst-1"), 1, UpdateCourseRequest{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Go Basics", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, desc, *updated.Description)
	assert.Equal(t, 59.0, updated.Price)
}

func TestPublishStampsTimestampOnce(t *testing.T) {
	repo := &mockCourseRepo{courses: map[int64]models.Course{
		1: {ID: 1, InstructorID: "inst-1", Title: "Go Basics", Status: models.CourseStatusDraft},
	}}
	invalidator := &mockInvalidator{}
	svc := courseService(repo, invalidator, "inst-1")

	published := "published"
	first, err := svc.Update(context.Background(), instructorClaims("inst-1"), 1, UpdateCourseRequest{Status: &published})
	require.NoError(t, err)
	require.NotNil(t, first.PublishedAt)
	firstStamp := *first.PublishedAt
	assert.Equal(t, 1, invalidator.calls)

	draft := "draft"
	_, err = svc.Update(context.Background(), instructorClaims("inst-1"), 1, UpdateCourseRequest{Status: &draft})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	second, err := svc.Update(context.Background(), instructorClaims("inst-1"), 1, UpdateCourseRequest{Status: &published})
	require.NoError(t, err)
	require.NotNil(t, second.PublishedAt)
	assert.Equal(t, firstStamp, *second.PublishedAt)
}

func TestAddLessonToOwnedModule(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[int64]models.Course{1: {ID: 1, InstructorID: "inst-1"}},
		modules: map[int64]models.Module{10: {ID: 10, CourseID: 1, Title: "Intro"}},
	}
	svc := courseService(repo, nil, "inst-1", "inst-2")

	lesson, err := svc.AddLesson(context.Background(), instructorClaims("inst-1"), 10, CreateLessonRequest{Title: "Welcome", Type: "video"})
	require.NoError(t, err)
	assert.Equal(t, models.LessonTypeVideo, lesson.Type)
	assert.NotZero(t, lesson.ID)

	_, err = svc.AddLesson(context.Background(), instructorClaims("inst-2"), 10, CreateLessonRequest{Title: "Welcome"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRosterCSV(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[int64]models.Course{1: {ID: 1, InstructorID: "inst-1"}},
		roster: []dto.RosterRow{
			{StudentName: "Ada", StudentEmail: "ada@example.com", EnrolledAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), TotalLessons: 42, CompletedLessons: 27},
		},
	}
	svc := courseService(repo, nil, "inst-1", "inst-2")

	csvBytes, err := svc.RosterCSV(context.Background(), instructorClaims("inst-1"), 1)
	require.NoError(t, err)
	content := string(csvBytes)
	assert.True(t, strings.HasPrefix(content, "Student,Email,Enrolled,Progress"))
	assert.Contains(t, content, "Ada,ada@example.com,2026-01-15,64%")

	_, err = svc.RosterCSV(context.Background(), instructorClaims("inst-2"), 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListLiveClassesVisibility(t *testing.T) {
	repo := &mockCourseRepo{
		courses:  map[int64]models.Course{1: {ID: 1, InstructorID: "inst-1", Status: models.CourseStatusDraft}},
		enrolled: map[string]bool{"stu-1/1": true},
		live:     []models.LiveClass{{ID: 7, CourseID: 1, Title: "Office hours"}},
	}
	svc := courseService(repo, nil, "inst-1")

	owner, err := svc.ListLiveClasses(context.Background(), instructorClaims("inst-1"), 1)
	require.NoError(t, err)
	require.Len(t, owner, 1)
	assert.Equal(t, "Office hours", owner[0].Title)

	enrolled, err := svc.ListLiveClasses(context.Background(), &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}, 1)
	require.NoError(t, err)
	assert.Len(t, enrolled, 1)

	admin, err := svc.ListLiveClasses(context.Background(), &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin}, 1)
	require.NoError(t, err)
	assert.Len(t, admin, 1)

	_, err = svc.ListLiveClasses(context.Background(), &models.JWTClaims{UserID: "stu-2", Role: models.RoleStudent}, 1)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "no permission", appErr.Message)

	_, err = svc.ListLiveClasses(context.Background(), instructorClaims("inst-1"), 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAddResourceRequiresTypeAndURL(t *testing.T) {
	repo := &mockCourseRepo{courses: map[int64]models.Course{1: {ID: 1, InstructorID: "inst-1"}}}
	svc := courseService(repo, nil, "inst-1")

	_, err := svc.AddResource(context.Background(), instructorClaims("inst-1"), 1, CreateResourceRequest{Title: "Slides"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.AddResource(context.Background(), instructorClaims("inst-1"), 1, CreateResourceRequest{Title: "Slides", Type: "pdf", URL: "not a url"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	res, err := svc.AddResource(context.Background(), instructorClaims("inst-1"), 1, CreateResourceRequest{Title: "Slides", Type: "pdf", URL: "https://cdn.example.com/slides.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "pdf", res.Type)
	assert.Equal(t, "https://cdn.example.com/slides.pdf", res.URL)
}
