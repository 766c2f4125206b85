package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"

	"github.com/deepinterview/deepinterview/internal/models"
	pgrepo "github.com/deepinterview/deepinterview/internal/repositories/postgres"
	"github.com/deepinterview/deepinterview/internal/utils"
)

// ProfileUpdate carries a partial profile edit; nil fields are left
// untouched.
type ProfileUpdate struct {
	Name              *string  `json:"name"`
	Email             *string  `json:"email"`
	CurrentPosition   *string  `json:"currentPosition"`
	YearsOfExperience *int     `json:"yearsOfExperience"`
	Industry          *string  `json:"industry"`
	Skills            []string `json:"skills"`
}

type Preferences struct {
	DefaultInterviewType string `json:"defaultInterviewType,omitempty"`
	DefaultSkillLevel    string `json:"defaultSkillLevel,omitempty"`
	NotificationsEnabled *bool  `json:"notificationsEnabled,omitempty"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs Preferences) (*models.User, error)
}

type userService struct {
	users pgrepo.UserRepository
}

func NewUserService(users pgrepo.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	const op = "UserService.GetProfile"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user id is required", nil)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get user", err)
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	const op = "UserService.UpdateProfile"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user id is required", nil)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeInternal, op, "failed to get user", err)
		}
		// First write creates the row; identity is established upstream
		// so an unknown id here is a fresh profile, not an error.
		u = &models.User{ID: userID, CreatedAt: time.Now().UTC()}
	}

	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.CurrentPosition != nil {
		u.CurrentPosition = *update.CurrentPosition
	}
	if update.YearsOfExperience != nil {
		if *update.YearsOfExperience < 0 {
			return nil, utils.E(utils.CodeInvalidArgument, op, "years of experience cannot be negative", nil)
		}
		u.YearsOfExperience = *update.YearsOfExperience
	}
	if update.Industry != nil {
		u.Industry = *update.Industry
	}
	if update.Skills != nil {
		u.Skills = update.Skills
	}
	u.LastActive = time.Now().UTC()

	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update profile", err)
	}
	return u, nil
}

func (s *userService) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) (*models.User, error) {
	const op = "UserService.UpdatePreferences"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user id is required", nil)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeInternal, op, "failed to get user", err)
		}
		u = &models.User{ID: userID, CreatedAt: time.Now().UTC()}
	}

	merged := Preferences{}
	if len(u.Preferences) > 0 {
		_ = json.Unmarshal(u.Preferences, &merged)
	}
	if prefs.DefaultInterviewType != "" {
		merged.DefaultInterviewType = prefs.DefaultInterviewType
	}
	if prefs.DefaultSkillLevel != "" {
		merged.DefaultSkillLevel = prefs.DefaultSkillLevel
	}
	if prefs.NotificationsEnabled != nil {
		merged.NotificationsEnabled = prefs.NotificationsEnabled
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode preferences", err)
	}
	u.Preferences = datatypes.JSON(raw)
	u.LastActive = time.Now().UTC()

	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update preferences", err)
	}
	return u, nil
}
