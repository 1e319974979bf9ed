package connections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"alumconnect/internal/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Store is the persistence the connection graph depends on.
type Store interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	CreateConnection(ctx context.Context, req models.ConnectionRequest, reopenRejected bool) (models.ConnectionRequest, error)
	RespondConnection(ctx context.Context, id string, status models.ConnectionStatus) (models.ConnectionRequest, error)
	ListConnections(ctx context.Context, userID string) ([]models.ConnectionRequest, error)
}

type Config struct {
	// AllowRetryAfterReject lets a pair whose request was rejected try again.
	AllowRetryAfterReject bool
}

type Service struct {
	cfg   Config
	store Store
	now   func() time.Time
}

func NewService(cfg Config, store Store) *Service {
	return &Service{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
}

// upstream wraps store errors that are not part of the domain taxonomy.
func upstream(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrDuplicateEdge),
		errors.Is(err, models.ErrNotPending),
		errors.Is(err, models.ErrValidation):
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrUpstream, err)
}

// ListCandidates returns every profile except userID, annotated with how it
// relates to userID.
func (s *Service) ListCandidates(ctx context.Context, userID string) ([]models.Candidate, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}

	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, upstream(err)
	}
	edges, err := s.store.ListConnections(ctx, userID)
	if err != nil {
		return nil, upstream(err)
	}

	byOther := lo.KeyBy(edges, func(e models.ConnectionRequest) string {
		return e.Other(userID)
	})

	others := lo.Filter(profiles, func(p models.Profile, _ int) bool {
		return p.ID != userID
	})

	return lo.Map(others, func(p models.Profile, _ int) models.Candidate {
		c := models.Candidate{Profile: p, Relation: models.RelationNone}
		if e, ok := byOther[p.ID]; ok {
			c.ConnectionID = e.ID
			c.Relation = relationOf(e, userID)
		}
		return c
	}), nil
}

func relationOf(e models.ConnectionRequest, viewer string) models.Relation {
	switch e.Status {
	case models.ConnectionStatusAccepted:
		return models.RelationConnected
	case models.ConnectionStatusRejected:
		return models.RelationRejected
	}
	if e.RequesterID == viewer {
		return models.RelationOutgoing
	}
	return models.RelationIncoming
}

// CreateRequest opens a pending edge from requesterID to receiverID. It fails
// with models.ErrDuplicateEdge if the pair already has an edge in either
// direction, unless the edge was rejected and retries are allowed.
func (s *Service) CreateRequest(ctx context.Context, requesterID, receiverID string) (models.Connection, error) {
	requesterID = strings.TrimSpace(requesterID)
	receiverID = strings.TrimSpace(receiverID)
	if requesterID == "" || receiverID == "" {
		return models.Connection{}, fmt.Errorf("%w: requesterId and receiverId are required", models.ErrValidation)
	}
	if requesterID == receiverID {
		return models.Connection{}, fmt.Errorf("%w: cannot connect to yourself", models.ErrValidation)
	}

	requester, err := s.store.GetProfile(ctx, requesterID)
	if err != nil {
		return models.Connection{}, upstream(err)
	}
	receiver, err := s.store.GetProfile(ctx, receiverID)
	if err != nil {
		return models.Connection{}, upstream(err)
	}

	edge, err := s.store.CreateConnection(ctx, models.ConnectionRequest{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		Status:      models.ConnectionStatusPending,
		CreatedAt:   s.now().UTC(),
	}, s.cfg.AllowRetryAfterReject)
	if err != nil {
		return models.Connection{}, upstream(err)
	}

	return join(edge, requester, receiver), nil
}

// ListPendingForReceiver returns pending edges addressed to userID.
func (s *Service) ListPendingForReceiver(ctx context.Context, userID string) ([]models.Connection, error) {
	return s.listJoined(ctx, userID, func(e models.ConnectionRequest) bool {
		return e.ReceiverID == userID && e.Status == models.ConnectionStatusPending
	})
}

// ListAccepted returns accepted edges with userID on either end.
func (s *Service) ListAccepted(ctx context.Context, userID string) ([]models.Connection, error) {
	return s.listJoined(ctx, userID, func(e models.ConnectionRequest) bool {
		return e.Status == models.ConnectionStatusAccepted
	})
}

// Respond settles a pending edge. Only accepted and rejected are valid
// outcomes, and an edge can be settled once.
func (s *Service) Respond(ctx context.Context, edgeID string, status models.ConnectionStatus) (models.Connection, error) {
	if strings.TrimSpace(edgeID) == "" {
		return models.Connection{}, fmt.Errorf("%w: connection id is required", models.ErrValidation)
	}
	if status != models.ConnectionStatusAccepted && status != models.ConnectionStatusRejected {
		return models.Connection{}, fmt.Errorf("%w: status must be accepted or rejected, got %q", models.ErrValidation, status)
	}

	edge, err := s.store.RespondConnection(ctx, edgeID, status)
	if err != nil {
		return models.Connection{}, upstream(err)
	}

	profiles, err := s.profilesByID(ctx)
	if err != nil {
		return models.Connection{}, err
	}
	return join(edge, profiles[edge.RequesterID], profiles[edge.ReceiverID]), nil
}

func (s *Service) listJoined(ctx context.Context, userID string, keep func(models.ConnectionRequest) bool) ([]models.Connection, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}

	edges, err := s.store.ListConnections(ctx, userID)
	if err != nil {
		return nil, upstream(err)
	}
	edges = lo.Filter(edges, func(e models.ConnectionRequest, _ int) bool { return keep(e) })
	if len(edges) == 0 {
		return []models.Connection{}, nil
	}

	profiles, err := s.profilesByID(ctx)
	if err != nil {
		return nil, err
	}

	return lo.Map(edges, func(e models.ConnectionRequest, _ int) models.Connection {
		return join(e, profiles[e.RequesterID], profiles[e.ReceiverID])
	}), nil
}

func (s *Service) profilesByID(ctx context.Context) (map[string]models.Profile, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, upstream(err)
	}
	return lo.KeyBy(profiles, func(p models.Profile) string { return p.ID }), nil
}

// join embeds endpoint directory fields into an edge. An endpoint missing from
// the directory is reported with its id only.
func join(e models.ConnectionRequest, requester, receiver models.Profile) models.Connection {
	req := requester.Summary()
	if req.ID == "" {
		req.ID = e.RequesterID
	}
	rcv := receiver.Summary()
	if rcv.ID == "" {
		rcv.ID = e.ReceiverID
	}
	return models.Connection{
		ID:        e.ID,
		Status:    e.Status,
		CreatedAt: e.CreatedAt,
		Requester: req,
		Receiver:  rcv,
	}
}
