// Package community serves the forum, interest groups and the alumni job board.
package community

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"alumconnect/internal/content"
	"alumconnect/internal/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const DefaultCategory = "General"

type Store interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	InsertPost(ctx context.Context, post models.Post) error
	ListPosts(ctx context.Context) ([]models.Post, error)
	InsertGroup(ctx context.Context, group models.Group) error
	ListGroups(ctx context.Context) ([]models.Group, error)
	InsertJob(ctx context.Context, job models.Job) error
	ListJobs(ctx context.Context) ([]models.Job, error)
}

type NewPost struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Author   string `json:"author" validate:"required"`
	Category string `json:"category"`
}

type NewGroup struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Members     int    `json:"members" validate:"gte=0"`
}

type NewJob struct {
	PosterID     string `json:"posterId" validate:"required"`
	Title        string `json:"title" validate:"required"`
	Company      string `json:"company" validate:"required"`
	Location     string `json:"location"`
	Type         string `json:"type"`
	Industry     string `json:"industry"`
	Experience   string `json:"experience"`
	SalaryMin    int    `json:"salaryMin" validate:"gte=0"`
	SalaryMax    int    `json:"salaryMax" validate:"omitempty,gtefield=SalaryMin"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	Benefits     string `json:"benefits"`
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func upstream(err error) error {
	if err == nil || errors.Is(err, models.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrUpstream, err)
}

// required takes name, value pairs and reports the first empty value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s is required", models.ErrValidation, pairs[i])
		}
	}
	return nil
}

// CreatePost stores a forum post. The markdown body is rendered to sanitized
// HTML once, at write time.
func (s *Service) CreatePost(ctx context.Context, req NewPost) (models.Post, error) {
	post := models.Post{
		ID:        uuid.NewString(),
		Title:     content.StripTags(req.Title),
		Content:   req.Content,
		Author:    content.StripTags(req.Author),
		Category:  content.StripTags(req.Category),
		CreatedAt: s.now().UTC(),
	}
	if err := required("title", post.Title, "content", post.Content, "author", post.Author); err != nil {
		return models.Post{}, err
	}
	if post.Category == "" {
		post.Category = DefaultCategory
	}

	html, err := content.RenderMarkdown(post.Content)
	if err != nil {
		return models.Post{}, fmt.Errorf("%w: failed to render content: %v", models.ErrValidation, err)
	}
	post.ContentHTML = html

	if err := s.store.InsertPost(ctx, post); err != nil {
		return models.Post{}, upstream(err)
	}
	return post, nil
}

func (s *Service) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.store.ListPosts(ctx)
	return posts, upstream(err)
}

func (s *Service) CreateGroup(ctx context.Context, req NewGroup) (models.Group, error) {
	group := models.Group{
		ID:          uuid.NewString(),
		Name:        content.StripTags(req.Name),
		Description: content.StripTags(req.Description),
		Members:     req.Members,
		CreatedAt:   s.now().UTC(),
	}
	if err := required("name", group.Name, "description", group.Description); err != nil {
		return models.Group{}, err
	}
	if group.Members <= 0 {
		group.Members = 1
	}

	if err := s.store.InsertGroup(ctx, group); err != nil {
		return models.Group{}, upstream(err)
	}
	return group, nil
}

func (s *Service) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups, err := s.store.ListGroups(ctx)
	return groups, upstream(err)
}

// CreateJob posts a job on behalf of an alumni profile. Other roles get
// models.ErrForbidden.
func (s *Service) CreateJob(ctx context.Context, req NewJob) (models.Job, error) {
	if err := required("posterId", req.PosterID, "title", req.Title, "company", req.Company); err != nil {
		return models.Job{}, err
	}
	if req.SalaryMax > 0 && req.SalaryMax < req.SalaryMin {
		return models.Job{}, fmt.Errorf("%w: salaryMax is below salaryMin", models.ErrValidation)
	}

	poster, err := s.store.GetProfile(ctx, strings.TrimSpace(req.PosterID))
	if err != nil {
		return models.Job{}, upstream(err)
	}
	if poster.Role != models.RoleAlumni {
		return models.Job{}, fmt.Errorf("%w: only alumni can post jobs", models.ErrForbidden)
	}

	job := models.Job{
		ID:           uuid.NewString(),
		PosterID:     poster.ID,
		Title:        content.StripTags(req.Title),
		Company:      content.StripTags(req.Company),
		Location:     content.StripTags(req.Location),
		Type:         content.StripTags(req.Type),
		Industry:     content.StripTags(req.Industry),
		Experience:   content.StripTags(req.Experience),
		SalaryMin:    req.SalaryMin,
		SalaryMax:    req.SalaryMax,
		Description:  content.Sanitize(req.Description),
		Requirements: content.Sanitize(req.Requirements),
		Benefits:     content.Sanitize(req.Benefits),
		CreatedAt:    s.now().UTC(),
		Poster:       posterOf(poster),
	}
	if err := s.store.InsertJob(ctx, job); err != nil {
		return models.Job{}, upstream(err)
	}
	return job, nil
}

// ListJobs returns jobs newest first with poster details joined in.
func (s *Service) ListJobs(ctx context.Context) ([]models.Job, error) {
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return nil, upstream(err)
	}
	if len(jobs) == 0 {
		return jobs, nil
	}

	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, upstream(err)
	}
	byID := lo.KeyBy(profiles, func(p models.Profile) string { return p.ID })

	return lo.Map(jobs, func(j models.Job, _ int) models.Job {
		if p, ok := byID[j.PosterID]; ok {
			j.Poster = posterOf(p)
		} else {
			j.Poster = models.JobPoster{ID: j.PosterID}
		}
		return j
	}), nil
}

func posterOf(p models.Profile) models.JobPoster {
	return models.JobPoster{
		ID:       p.ID,
		Name:     p.Name,
		Role:     p.Role,
		GradYear: p.GradYear,
	}
}
