package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/deepinterview/deepinterview/internal/generator"
	"github.com/deepinterview/deepinterview/internal/models"
	pgrepo "github.com/deepinterview/deepinterview/internal/repositories/postgres"
	"github.com/deepinterview/deepinterview/internal/utils"
)

const maxResumeContent = 50000

var allowedFileTypes = map[string]bool{"pdf": true, "docx": true, "txt": true}

type ResumeService interface {
	Create(ctx context.Context, userID, title, filename, fileType, content string) (*models.Resume, error)
	Get(ctx context.Context, userID, resumeID string) (*models.Resume, error)
	ListByUser(ctx context.Context, userID string) ([]models.Resume, error)
	Rename(ctx context.Context, userID, resumeID, title string) (*models.Resume, error)
	SetDefault(ctx context.Context, userID, resumeID string) error
	Analyze(ctx context.Context, userID, resumeID, jobPosition string) (*generator.ResumeAnalysis, error)
	Delete(ctx context.Context, userID, resumeID string) error
}

type resumeService struct {
	resumes pgrepo.ResumeRepository
	gen     *generator.Generator
	log     *logrus.Logger
}

func NewResumeService(resumes pgrepo.ResumeRepository, gen *generator.Generator, log *logrus.Logger) ResumeService {
	if log == nil {
		log = logrus.New()
	}
	return &resumeService{resumes: resumes, gen: gen, log: log}
}

func (s *resumeService) Create(ctx context.Context, userID, title, filename, fileType, content string) (*models.Resume, error) {
	const op = "ResumeService.Create"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user id is required", nil)
	}
	if strings.TrimSpace(content) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "resume content is required", nil)
	}
	fileType = strings.ToLower(fileType)
	if !allowedFileTypes[fileType] {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unsupported file type", nil)
	}
	if len(content) > maxResumeContent {
		content = content[:maxResumeContent]
	}
	if title == "" {
		title = filename
	}
	if title == "" {
		title = "Untitled Resume"
	}

	r := &models.Resume{
		ID:               uuid.NewString(),
		UserID:           userID,
		Title:            title,
		OriginalFilename: filename,
		FileType:         fileType,
		Content:          content,
		UploadedAt:       time.Now().UTC(),
	}
	if err := s.resumes.Create(ctx, r); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save resume", err)
	}
	return r, nil
}

func (s *resumeService) Get(ctx context.Context, userID, resumeID string) (*models.Resume, error) {
	const op = "ResumeService.Get"
	return s.owned(ctx, op, userID, resumeID)
}

func (s *resumeService) ListByUser(ctx context.Context, userID string) ([]models.Resume, error) {
	const op = "ResumeService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user id is required", nil)
	}
	list, err := s.resumes.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list resumes", err)
	}
	if list == nil {
		list = []models.Resume{}
	}
	return list, nil
}

func (s *resumeService) Rename(ctx context.Context, userID, resumeID, title string) (*models.Resume, error) {
	const op = "ResumeService.Rename"

	if strings.TrimSpace(title) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title is required", nil)
	}
	r, err := s.owned(ctx, op, userID, resumeID)
	if err != nil {
		return nil, err
	}
	if err := s.resumes.UpdateTitle(ctx, resumeID, title); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to rename resume", err)
	}
	r.Title = title
	return r, nil
}

func (s *resumeService) SetDefault(ctx context.Context, userID, resumeID string) error {
	const op = "ResumeService.SetDefault"

	if _, err := s.owned(ctx, op, userID, resumeID); err != nil {
		return err
	}
	if err := s.resumes.SetDefault(ctx, userID, resumeID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to set default resume", err)
	}
	return nil
}

func (s *resumeService) Analyze(ctx context.Context, userID, resumeID, jobPosition string) (*generator.ResumeAnalysis, error) {
	const op = "ResumeService.Analyze"

	r, err := s.owned(ctx, op, userID, resumeID)
	if err != nil {
		return nil, err
	}

	analysis := s.gen.AnalyzeResume(ctx, r.Content, jobPosition)

	raw, err := json.Marshal(analysis)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode analysis", err)
	}
	if err := s.resumes.SetAnalysis(ctx, resumeID, datatypes.JSON(raw), time.Now().UTC()); err != nil {
		// The analysis is still usable; persistence is retried on the
		// next request.
		s.log.WithError(err).WithField("resume_id", resumeID).Warn("failed to persist resume analysis")
	}
	return &analysis, nil
}

func (s *resumeService) Delete(ctx context.Context, userID, resumeID string) error {
	const op = "ResumeService.Delete"

	if _, err := s.owned(ctx, op, userID, resumeID); err != nil {
		return err
	}
	if err := s.resumes.Delete(ctx, resumeID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete resume", err)
	}
	return nil
}

func (s *resumeService) owned(ctx context.Context, op, userID, resumeID string) (*models.Resume, error) {
	if userID == "" || resumeID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user id and resume id are required", nil)
	}
	r, err := s.resumes.GetByID(ctx, resumeID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "resume not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get resume", err)
	}
	if r.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "resume belongs to another user", nil)
	}
	return r, nil
}
