package storage

import (
	"context"
	"fmt"
	"sort"

	"alumconnect/internal/models"

	"go.etcd.io/bbolt"
)

func getConnection(tx *bbolt.Tx, id string) (DBConnection, error) {
	var c DBConnection
	data := tx.Bucket(bucketConnections).Get([]byte(id))
	if data == nil {
		return c, fmt.Errorf("connection %s: %w", id, models.ErrNotFound)
	}
	err := c.UnmarshalBinary(data)
	return c, err
}

// CreateConnection inserts req unless an edge already exists between its two
// endpoints in either direction. The existence check and the insert share one
// transaction. With reopenRejected set, a rejected edge is reset to req's
// orientation, status and timestamp under its existing id.
func (s *BboltStorage) CreateConnection(ctx context.Context, req models.ConnectionRequest, reopenRejected bool) (models.ConnectionRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.ConnectionRequest{}, err
	}
	var created models.ConnectionRequest
	err := s.db.Update(func(tx *bbolt.Tx) error {
		pairs := tx.Bucket(bucketConnectionPairs)
		key := pairKey(req.RequesterID, req.ReceiverID)

		record := DBConnection{
			ID:          req.ID,
			RequesterID: req.RequesterID,
			ReceiverID:  req.ReceiverID,
			Status:      string(req.Status),
			CreatedAt:   req.CreatedAt.UnixMilli(),
		}

		if existingID := pairs.Get(key); existingID != nil {
			existing, err := getConnection(tx, string(existingID))
			if err != nil {
				return err
			}
			if !reopenRejected || existing.Status != string(models.ConnectionStatusRejected) {
				return models.ErrDuplicateEdge
			}
			record.ID = existing.ID
		}

		if err := put(tx.Bucket(bucketConnections), &record); err != nil {
			return err
		}
		if err := pairs.Put(key, []byte(record.ID)); err != nil {
			return err
		}
		created = record.toModel()
		return nil
	})
	return created, err
}

// RespondConnection moves a pending edge to status. Edges that already left
// pending are not touched and yield models.ErrNotPending.
func (s *BboltStorage) RespondConnection(ctx context.Context, id string, status models.ConnectionStatus) (models.ConnectionRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.ConnectionRequest{}, err
	}
	var updated models.ConnectionRequest
	err := s.db.Update(func(tx *bbolt.Tx) error {
		c, err := getConnection(tx, id)
		if err != nil {
			return err
		}
		if c.Status != string(models.ConnectionStatusPending) {
			return fmt.Errorf("connection %s is %s: %w", id, c.Status, models.ErrNotPending)
		}
		c.Status = string(status)
		if err := put(tx.Bucket(bucketConnections), &c); err != nil {
			return err
		}
		updated = c.toModel()
		return nil
	})
	return updated, err
}

// ListConnections returns every edge touching userID, oldest first.
func (s *BboltStorage) ListConnections(ctx context.Context, userID string) ([]models.ConnectionRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result []models.ConnectionRequest
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConnections).ForEach(func(k, v []byte) error {
			var c DBConnection
			if err := c.UnmarshalBinary(v); err != nil {
				return err
			}
			if c.RequesterID == userID || c.ReceiverID == userID {
				result = append(result, c.toModel())
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortConnections(result)
	return result, nil
}

func sortConnections(cs []models.ConnectionRequest) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}
