package storage

import (
	"context"
	"errors"
	"fmt"

	"alumconnect/internal/models"
	"alumconnect/internal/outbox"

	"go.etcd.io/bbolt"
)

// InsertMessage appends msg to its channel. Inserting a message id that is
// already stored is a no-op, so redelivery from the outbox is harmless.
func (s *BboltStorage) InsertMessage(ctx context.Context, msg models.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Channel == "" {
		return errors.New("message missing channel")
	}
	if msg.ID == "" {
		return errors.New("message missing id")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		ids := tx.Bucket(bucketMessageIDs)
		if ids.Get([]byte(msg.ID)) != nil {
			return nil
		}

		channelBucket, err := tx.Bucket(bucketMessages).CreateBucketIfNotExists([]byte(msg.Channel))
		if err != nil {
			return fmt.Errorf("failed to create channel bucket: %w", err)
		}

		seq, err := channelBucket.NextSequence()
		if err != nil {
			return err
		}
		record := newDBMessage(msg)
		record.Seq = seq

		if err := put(channelBucket, &record); err != nil {
			return fmt.Errorf("failed to put message: %w", err)
		}
		return ids.Put([]byte(msg.ID), []byte(msg.Channel))
	})
}

// ListRecentMessages returns up to limit of the newest messages in channel,
// oldest first. An unknown channel yields an empty slice.
func (s *BboltStorage) ListRecentMessages(ctx context.Context, channel string, limit int) ([]models.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	messages := []models.ChatMessage{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		channelBucket := tx.Bucket(bucketMessages).Bucket([]byte(channel))
		if channelBucket == nil {
			return nil
		}

		c := channelBucket.Cursor()
		for k, v := c.Last(); k != nil && len(messages) < limit; k, v = c.Prev() {
			var m DBMessage
			if err := m.UnmarshalBinary(v); err != nil {
				return err
			}
			messages = append(messages, m.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AppendOutbox durably queues msg for persistence.
func (s *BboltStorage) AppendOutbox(msg models.ChatMessage) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		record := newDBMessage(msg)
		return appendSeq(tx.Bucket(bucketOutbox), &record)
	})
}

// PendingOutbox returns up to limit queued entries in queue order.
func (s *BboltStorage) PendingOutbox(limit int) ([]outbox.Entry, error) {
	var entries []outbox.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketOutbox).Cursor()
		for k, v := c.First(); k != nil && len(entries) < limit; k, v = c.Next() {
			var m DBMessage
			if err := m.UnmarshalBinary(v); err != nil {
				return err
			}
			entries = append(entries, outbox.Entry{
				Seq:     seqFromKey(k),
				Message: m.toModel(),
			})
		}
		return nil
	})
	return entries, err
}

// AckOutbox removes a delivered entry.
func (s *BboltStorage) AckOutbox(seq uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutbox).Delete(seqKey(seq))
	})
}
