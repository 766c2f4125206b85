package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/deepinterview/deepinterview/internal/generator"
	"github.com/deepinterview/deepinterview/internal/models"
	"github.com/deepinterview/deepinterview/internal/utils"
)

type fakeResumeRepo struct {
	mu      sync.Mutex
	resumes map[string]*models.Resume
}

func newFakeResumeRepo() *fakeResumeRepo {
	return &fakeResumeRepo{resumes: map[string]*models.Resume{}}
}

func (f *fakeResumeRepo) Create(_ context.Context, r *models.Resume) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.resumes[r.ID] = &cp
	return nil
}

func (f *fakeResumeRepo) GetByID(_ context.Context, resumeID string) (*models.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[resumeID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResumeRepo) ListByUser(_ context.Context, userID string) ([]models.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Resume
	for _, r := range f.resumes {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResumeRepo) UpdateTitle(_ context.Context, resumeID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[resumeID]
	if !ok {
		return utils.ErrNotFound
	}
	r.Title = title
	return nil
}

func (f *fakeResumeRepo) SetAnalysis(_ context.Context, resumeID string, analysis datatypes.JSON, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[resumeID]
	if !ok {
		return utils.ErrNotFound
	}
	r.Analysis = analysis
	r.LastAnalyzedAt = &at
	return nil
}

func (f *fakeResumeRepo) SetDefault(_ context.Context, userID, resumeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.resumes {
		if r.UserID == userID {
			r.IsDefault = r.ID == resumeID
		}
	}
	return nil
}

func (f *fakeResumeRepo) Delete(_ context.Context, resumeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.resumes[resumeID]; !ok {
		return utils.ErrNotFound
	}
	delete(f.resumes, resumeID)
	return nil
}

func newTestResumeService(repo *fakeResumeRepo) ResumeService {
	return NewResumeService(repo, generator.New(nil, nil), nil)
}

func TestResumeCreateValidation(t *testing.T) {
	svc := newTestResumeService(newFakeResumeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "Title", "cv.pdf", "pdf", "content")
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	_, err = svc.Create(ctx, "u-1", "Title", "cv.pdf", "pdf", "   ")
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	_, err = svc.Create(ctx, "u-1", "Title", "cv.exe", "exe", "content")
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))
}

func TestResumeCreateDefaultsTitle(t *testing.T) {
	svc := newTestResumeService(newFakeResumeRepo())

	r, err := svc.Create(context.Background(), "u-1", "", "my-cv.PDF.txt", "TXT", "some resume text")
	require.NoError(t, err)
	assert.Equal(t, "my-cv.PDF.txt", r.Title)
	assert.Equal(t, "txt", r.FileType)
	assert.NotEmpty(t, r.ID)
}

func TestResumeOwnershipEnforced(t *testing.T) {
	repo := newFakeResumeRepo()
	svc := newTestResumeService(repo)
	ctx := context.Background()

	r, err := svc.Create(ctx, "u-1", "Mine", "cv.pdf", "pdf", "content")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "u-2", r.ID)
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))

	err = svc.Delete(ctx, "u-2", r.ID)
	assert.Equal(t, utils.CodeForbidden, utils.CodeOf(err))

	// The real owner still succeeds.
	got, err := svc.Get(ctx, "u-1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Title)
}

func TestResumeAnalyzePersistsResult(t *testing.T) {
	repo := newFakeResumeRepo()
	svc := newTestResumeService(repo)
	ctx := context.Background()

	r, err := svc.Create(ctx, "u-1", "Mine", "cv.pdf", "pdf", "years of Go and SQL experience")
	require.NoError(t, err)

	analysis, err := svc.Analyze(ctx, "u-1", r.ID, "Backend Developer")
	require.NoError(t, err)
	assert.Equal(t, generator.SourceFallback, analysis.Source)
	assert.NotEmpty(t, analysis.Summary)

	stored, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Analysis)
	assert.NotNil(t, stored.LastAnalyzedAt)
}

func TestResumeSetDefaultIsExclusive(t *testing.T) {
	repo := newFakeResumeRepo()
	svc := newTestResumeService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, "u-1", "First", "a.pdf", "pdf", "content a")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "u-1", "Second", "b.pdf", "pdf", "content b")
	require.NoError(t, err)

	require.NoError(t, svc.SetDefault(ctx, "u-1", first.ID))
	require.NoError(t, svc.SetDefault(ctx, "u-1", second.ID))

	list, err := svc.ListByUser(ctx, "u-1")
	require.NoError(t, err)

	defaults := 0
	for _, r := range list {
		if r.IsDefault {
			defaults++
			assert.Equal(t, second.ID, r.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}
