package storage

import (
	"context"
	"encoding"
	"fmt"
	"sort"
	"time"

	"alumconnect/internal/auth"
	"alumconnect/internal/models"

	"go.etcd.io/bbolt"
)

var (
	bucketProfiles        = []byte("profiles")
	bucketProfileEmails   = []byte("profile_emails")
	bucketMessages        = []byte("messages")
	bucketMessageIDs      = []byte("message_ids")
	bucketOutbox          = []byte("outbox")
	bucketConnections     = []byte("connections")
	bucketConnectionPairs = []byte("connection_pairs")
	bucketPosts           = []byte("posts")
	bucketGroups          = []byte("groups")
	bucketJobs            = []byte("jobs")
)

type BboltStorage struct {
	db *bbolt.DB
}

func NewBboltStorage(path string) (*BboltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketProfiles,
			bucketProfileEmails,
			bucketMessages,
			bucketMessageIDs,
			bucketOutbox,
			bucketConnections,
			bucketConnectionPairs,
			bucketPosts,
			bucketGroups,
			bucketJobs,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BboltStorage{db: db}, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

func put(b *bbolt.Bucket, record Storeable) error {
	data, err := record.MarshalBinary()
	if err != nil {
		return err
	}
	return b.Put(record.Key(), data)
}

// appendSeq stores v under the bucket's next sequence number.
func appendSeq(b *bbolt.Bucket, v encoding.BinaryMarshaler) error {
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	data, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	return b.Put(seqKey(seq), data)
}

// eachNewest walks b from the highest key down.
func eachNewest(b *bbolt.Bucket, fn func(v []byte) error) error {
	c := b.Cursor()
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// CreateProfile stores a new profile. Emails are unique.
func (s *BboltStorage) CreateProfile(ctx context.Context, credentials auth.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket(bucketProfileEmails)
		if credentials.Email != "" {
			if emails.Get([]byte(credentials.Email)) != nil {
				return models.ErrUserExists
			}
			if err := emails.Put([]byte(credentials.Email), []byte(credentials.ID)); err != nil {
				return err
			}
		}

		return put(tx.Bucket(bucketProfiles), &DBProfile{
			ID:           credentials.ID,
			Name:         credentials.Name,
			Email:        credentials.Email,
			City:         credentials.City,
			Country:      credentials.Country,
			Role:         string(credentials.Role),
			GradYear:     credentials.GradYear,
			PasswordHash: credentials.PasswordHash,
			CreatedAt:    credentials.CreatedAt.UnixMilli(),
		})
	})
}

// ListCredentials returns every stored profile with its password hash.
func (s *BboltStorage) ListCredentials(ctx context.Context) ([]auth.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var credentials []auth.Credentials
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProfiles).ForEach(func(k, v []byte) error {
			var p DBProfile
			if err := p.UnmarshalBinary(v); err != nil {
				return err
			}
			credentials = append(credentials, auth.Credentials{
				Profile:      p.toModel(),
				PasswordHash: p.PasswordHash,
			})
			return nil
		})
	})
	return credentials, err
}

func (s *BboltStorage) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return models.Profile{}, err
	}
	var profile models.Profile
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketProfiles).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
		}
		var p DBProfile
		if err := p.UnmarshalBinary(data); err != nil {
			return err
		}
		profile = p.toModel()
		return nil
	})
	return profile, err
}

// ListProfiles returns all profiles ordered by name.
func (s *BboltStorage) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	credentials, err := s.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]models.Profile, len(credentials))
	for i, c := range credentials {
		profiles[i] = c.Profile
	}
	sortProfiles(profiles)
	return profiles, nil
}

func sortProfiles(profiles []models.Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		if profiles[i].Name != profiles[j].Name {
			return profiles[i].Name < profiles[j].Name
		}
		return profiles[i].ID < profiles[j].ID
	})
}
