package storage

import (
	"context"
	"time"

	"alumconnect/internal/models"

	"go.etcd.io/bbolt"
)

func (s *BboltStorage) InsertPost(ctx context.Context, post models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return appendSeq(tx.Bucket(bucketPosts), &DBPost{
			ID:        post.ID,
			Title:     post.Title,
			Content:   post.Content,
			HTML:      post.ContentHTML,
			Author:    post.Author,
			Category:  post.Category,
			CreatedAt: post.CreatedAt.UnixMilli(),
		})
	})
}

// ListPosts returns posts newest first.
func (s *BboltStorage) ListPosts(ctx context.Context) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	posts := []models.Post{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return eachNewest(tx.Bucket(bucketPosts), func(v []byte) error {
			var p DBPost
			if err := p.UnmarshalBinary(v); err != nil {
				return err
			}
			posts = append(posts, models.Post{
				ID:          p.ID,
				Title:       p.Title,
				Content:     p.Content,
				ContentHTML: p.HTML,
				Author:      p.Author,
				Category:    p.Category,
				CreatedAt:   time.UnixMilli(p.CreatedAt).UTC(),
			})
			return nil
		})
	})
	return posts, err
}

func (s *BboltStorage) InsertGroup(ctx context.Context, group models.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return appendSeq(tx.Bucket(bucketGroups), &DBGroup{
			ID:          group.ID,
			Name:        group.Name,
			Description: group.Description,
			Members:     group.Members,
			CreatedAt:   group.CreatedAt.UnixMilli(),
		})
	})
}

// ListGroups returns groups in creation order.
func (s *BboltStorage) ListGroups(ctx context.Context) ([]models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	groups := []models.Group{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketGroups).ForEach(func(k, v []byte) error {
			var g DBGroup
			if err := g.UnmarshalBinary(v); err != nil {
				return err
			}
			groups = append(groups, models.Group{
				ID:          g.ID,
				Name:        g.Name,
				Description: g.Description,
				Members:     g.Members,
				CreatedAt:   time.UnixMilli(g.CreatedAt).UTC(),
			})
			return nil
		})
	})
	return groups, err
}

func (s *BboltStorage) InsertJob(ctx context.Context, job models.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return appendSeq(tx.Bucket(bucketJobs), &DBJob{
			ID:           job.ID,
			PosterID:     job.PosterID,
			Title:        job.Title,
			Company:      job.Company,
			Location:     job.Location,
			Type:         job.Type,
			Industry:     job.Industry,
			Experience:   job.Experience,
			SalaryMin:    job.SalaryMin,
			SalaryMax:    job.SalaryMax,
			Description:  job.Description,
			Requirements: job.Requirements,
			Benefits:     job.Benefits,
			CreatedAt:    job.CreatedAt.UnixMilli(),
		})
	})
}

// ListJobs returns jobs newest first. Poster fields are left for the caller to join.
func (s *BboltStorage) ListJobs(ctx context.Context) ([]models.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jobs := []models.Job{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return eachNewest(tx.Bucket(bucketJobs), func(v []byte) error {
			var j DBJob
			if err := j.UnmarshalBinary(v); err != nil {
				return err
			}
			jobs = append(jobs, models.Job{
				ID:           j.ID,
				PosterID:     j.PosterID,
				Title:        j.Title,
				Company:      j.Company,
				Location:     j.Location,
				Type:         j.Type,
				Industry:     j.Industry,
				Experience:   j.Experience,
				SalaryMin:    j.SalaryMin,
				SalaryMax:    j.SalaryMax,
				Description:  j.Description,
				Requirements: j.Requirements,
				Benefits:     j.Benefits,
				CreatedAt:    time.UnixMilli(j.CreatedAt).UTC(),
			})
			return nil
		})
	})
	return jobs, err
}
