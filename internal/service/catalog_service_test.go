package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflow-app/eduflow-api/internal/dto"
	"github.com/eduflow-app/eduflow-api/internal/models"
	appErrors "github.com/eduflow-app/eduflow-api/pkg/errors"
)

type mockCatalogRepo struct {
	popular      []dto.CourseCard
	newest       []dto.CourseCard
	header       *dto.CourseDetail
	modules      []models.Module
	lessons      []dto.LessonSummary
	resources    []models.Resource
	students     int
	rating       float64
	err          error
	headerErr    error
	subErr       error
	popularCalls int
}

func (m *mockCatalogRepo) ListPopular(ctx context.Context, limit int) ([]dto.CourseCard, error) {
	m.popularCalls++
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.popular) {
		return m.popular[:limit], nil
	}
	return m.popular, nil
}

func (m *mockCatalogRepo) ListNew(ctx context.Context, limit int) ([]dto.CourseCard, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.newest, nil
}

func (m *mockCatalogRepo) FindHeader(ctx context.Context, courseID int64) (*dto.CourseDetail, error) {
	if m.headerErr != nil {
		return nil, m.headerErr
	}
	if m.header == nil {
		return nil, sql.ErrNoRows
	}
	header := *m.header
	return &header, nil
}

func (m *mockCatalogRepo) CountStudents(ctx context.Context, courseID int64) (int, error) {
	if m.subErr != nil {
		return 0, m.subErr
	}
	return m.students, nil
}

func (m *mockCatalogRepo) AverageRating(ctx context.Context, courseID int64) (float64, error) {
	return m.rating, nil
}

func (m *mockCatalogRepo) ListModules(ctx context.Context, courseID int64) ([]models.Module, error) {
	return m.modules, nil
}

func (m *mockCatalogRepo) ListLessonsByCourse(ctx context.Context, courseID int64) ([]dto.LessonSummary, error) {
	return m.lessons, nil
}

func (m *mockCatalogRepo) ListResources(ctx context.Context, courseID int64) ([]models.Resource, error) {
	return m.resources, nil
}

type mockCache struct {
	store    map[string][]byte
	getCalls int
	setCalls int
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.getCalls++
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = map[string][]byte{}
	}
	m.setCalls++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.store = map[string][]byte{}
	return nil
}

func TestPopularFailsOpenToEmpty(t *testing.T) {
	repo := &mockCatalogRepo{err: errors.New("connection refused")}
	svc := NewCatalogService(repo, nil, CatalogConfig{}, nil)

	cards := svc.Popular(context.Background(), 6)
	assert.NotNil(t, cards)
	assert.Empty(t, cards)
}

func TestBrowseUsesCache(t *testing.T) {
	repo := &mockCatalogRepo{popular: []dto.CourseCard{{ID: 1, Title: "Go Basics"}}}
	cache := &mockCache{}
	svc := NewCatalogService(repo, cache, CatalogConfig{}, nil)

	first := svc.Popular(context.Background(), 6)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.popularCalls)
	assert.Equal(t, 1, cache.setCalls)

	second := svc.Popular(context.Background(), 6)
	require.Len(t, second, 1)
	assert.Equal(t, 1, repo.popularCalls)
}

func TestBrowseClampsLimit(t *testing.T) {
	repo := &mockCatalogRepo{popular: make([]dto.CourseCard, 60)}
	svc := NewCatalogService(repo, nil, CatalogConfig{DefaultLimit: 6, MaxLimit: 50}, nil)

	cards := svc.Popular(context.Background(), 500)
	assert.Len(t, cards, 50)

	cards = svc.Popular(context.Background(), 0)
	assert.Len(t, cards, 6)
}

func TestDetailHidesDraftFromPublic(t *testing.T) {
	repo := &mockCatalogRepo{header: &dto.CourseDetail{
		ID: 1, Title: "WIP", Status: models.CourseStatusDraft, InstructorID: "inst-1",
	}}
	svc := NewCatalogService(repo, nil, CatalogConfig{}, nil)

	_, err := svc.Detail(context.Background(), 1, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Detail(context.Background(), 1, "stu-9")
	require.Error(t, err)

	detail, err := svc.Detail(context.Background(), 1, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "WIP", detail.Title)
}

func TestDetailAssemblesOutline(t *testing.T) {
	repo := &mockCatalogRepo{
		header: &dto.CourseDetail{ID: 1, Title: "Go Basics", Status: models.CourseStatusPublished, InstructorID: "inst-1"},
		modules: []models.Module{
			{ID: 10, CourseID: 1, Title: "Intro", Position: 0},
			{ID: 11, CourseID: 1, Title: "Advanced", Position: 1},
		},
		lessons: []dto.LessonSummary{
			{ID: 100, ModuleID: 10, Title: "Welcome", Position: 0},
			{ID: 101, ModuleID: 10, Title: "Setup", Position: 1},
		},
		students: 12,
		rating:   4.5,
	}
	svc := NewCatalogService(repo, nil, CatalogConfig{}, nil)

	detail, err := svc.Detail(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, 12, detail.StudentCount)
	assert.InDelta(t, 4.5, detail.AverageRating, 0.001)
	require.Len(t, detail.Modules, 2)
	assert.Len(t, detail.Modules[0].Lessons, 2)
	assert.Empty(t, detail.Modules[1].Lessons)
	assert.NotNil(t, detail.Modules[1].Lessons)
}

func TestDetailFailsOpenOnStorageError(t *testing.T) {
	repo := &mockCatalogRepo{
		header: &dto.CourseDetail{ID: 1, Title: "Go Basics", Status: models.CourseStatusPublished, InstructorID: "inst-1"},
		subErr: errors.New("connection refused"),
	}
	svc := NewCatalogService(repo, nil, CatalogConfig{}, nil)

	detail, err := svc.Detail(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Nil(t, detail)

	svc = NewCatalogService(&mockCatalogRepo{headerErr: errors.New("connection refused")}, nil, CatalogConfig{}, nil)
	detail, err = svc.Detail(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestDetailUnknownCourse(t *testing.T) {
	svc := NewCatalogService(&mockCatalogRepo{}, nil, CatalogConfig{}, nil)

	_, err := svc.Detail(context.Background(), 99, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
