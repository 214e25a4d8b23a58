package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"resume-builder/internal/shared/validation"
	"resume-builder/internal/users"
	"resume-builder/resume/model"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	recentUserCount = 5
)

var (
	ErrSelfDelete      = errors.New("admins cannot delete their own account")
	ErrNothingToUpdate = errors.New("nothing to update")
)

// ResumeDirectory is the slice of the resume service the admin area needs.
type ResumeDirectory interface {
	ListForUser(ctx context.Context, userID string) ([]model.Summary, error)
	Count(ctx context.Context) (int, error)
}

// AccountRemover deletes a user together with everything they own.
type AccountRemover interface {
	DeleteAccount(ctx context.Context, userID string) error
}

type Service struct {
	Users    users.Repo
	Accounts AccountRemover
	Resumes  ResumeDirectory
	Now      func() time.Time
}

func NewService(repo users.Repo, accounts AccountRemover, resumes ResumeDirectory) *Service {
	return &Service{Users: repo, Accounts: accounts, Resumes: resumes, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type UserPage struct {
	Users      []users.Profile `json:"users"`
	Pagination Pagination      `json:"pagination"`
}

// ListUsers pages through users newest first. Out-of-range paging values fall back to defaults.
func (s *Service) ListUsers(ctx context.Context, page, limit int, search string) (UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	list, total, err := s.Users.List(ctx, users.ListQuery{
		Search: strings.TrimSpace(search),
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return UserPage{}, err
	}
	out := UserPage{
		Users:      profiles(list),
		Pagination: Pagination{Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit},
	}
	return out, nil
}

type Stats struct {
	TotalUsers       int             `json:"totalUsers"`
	TotalResumes     int             `json:"totalResumes"`
	NewUsersThisWeek int             `json:"newUsersThisWeek"`
	NewUsersToday    int             `json:"newUsersToday"`
	RecentUsers      []users.Profile `json:"recentUsers"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	now := s.now()
	recent, total, err := s.Users.List(ctx, users.ListQuery{Limit: recentUserCount})
	if err != nil {
		return Stats{}, err
	}
	resumes, err := s.Resumes.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	week, err := s.Users.CountCreatedSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return Stats{}, err
	}
	today, err := s.Users.CountCreatedSince(ctx, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalUsers:       total,
		TotalResumes:     resumes,
		NewUsersThisWeek: week,
		NewUsersToday:    today,
		RecentUsers:      profiles(recent),
	}, nil
}

type UserDetail struct {
	User    users.Profile   `json:"user"`
	Resumes []model.Summary `json:"resumes"`
}

func (s *Service) GetUser(ctx context.Context, id string) (UserDetail, error) {
	user, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	list, err := s.Resumes.ListForUser(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	if list == nil {
		list = []model.Summary{}
	}
	return UserDetail{User: user.Profile(), Resumes: list}, nil
}

// UserUpdate carries optional admin edits; nil means keep.
type UserUpdate struct {
	Name    *string `json:"name" validate:"omitempty,max=50"`
	Email   *string `json:"email" validate:"omitempty,email"`
	IsAdmin *bool   `json:"isAdmin"`
}

func (s *Service) UpdateUser(ctx context.Context, id string, in UserUpdate) (users.User, error) {
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
	}
	if in.Email != nil {
		v := users.NormalizeEmail(*in.Email)
		in.Email = &v
	}
	if in.Name == nil && in.Email == nil && in.IsAdmin == nil {
		return users.User{}, ErrNothingToUpdate
	}
	if err := validation.Struct(in); err != nil {
		return users.User{}, err
	}
	user, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return users.User{}, err
	}
	if in.Name != nil && *in.Name != "" {
		user.Name = *in.Name
	}
	if in.Email != nil && *in.Email != "" {
		user.Email = *in.Email
	}
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}
	user.UpdatedAt = s.now()
	if err := s.Users.Update(ctx, user); err != nil {
		return users.User{}, err
	}
	return user, nil
}

// DeleteUser removes another user's account and everything it owns.
func (s *Service) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfDelete
	}
	return s.Accounts.DeleteAccount(ctx, id)
}

func profiles(list []users.User) []users.Profile {
	out := make([]users.Profile, 0, len(list))
	for _, u := range list {
		out = append(out, u.Profile())
	}
	return out
}
