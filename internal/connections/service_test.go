package connections

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"alumconnect/internal/auth"
	"alumconnect/internal/models"
	"alumconnect/internal/storage"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, cfg Config) (*Service, *storage.BboltStorage) {
	t.Helper()
	store, err := storage.NewBboltStorage(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for _, p := range []models.Profile{
		{ID: "a", Name: "Ada", City: "London", Country: "UK"},
		{ID: "b", Name: "Bo", City: "Pune", Country: "India"},
		{ID: "c", Name: "Cy"},
	} {
		require.NoError(t, store.CreateProfile(ctx, auth.Credentials{Profile: p}))
	}

	svc := NewService(cfg, store)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, store
}

func TestService_CreateRequest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{})

	conn, err := svc.CreateRequest(ctx, "a", "b")
	require.NoError(t, err)
	require.NotEmpty(t, conn.ID)
	require.Equal(t, models.ConnectionStatusPending, conn.Status)
	require.Equal(t, models.ProfileSummary{ID: "a", Name: "Ada", City: "London", Country: "UK"}, conn.Requester)
	require.Equal(t, "Bo", conn.Receiver.Name)

	tests := []struct {
		name      string
		requester string
		receiver  string
		wantErr   error
	}{
		{"SameDirection", "a", "b", models.ErrDuplicateEdge},
		{"ReverseDirection", "b", "a", models.ErrDuplicateEdge},
		{"Self", "a", "a", models.ErrValidation},
		{"MissingRequester", "", "b", models.ErrValidation},
		{"MissingReceiver", "a", " ", models.ErrValidation},
		{"UnknownReceiver", "a", "zz", models.ErrNotFound},
		{"UnknownRequester", "zz", "a", models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRequest(ctx, tt.requester, tt.receiver)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_ConcurrentRequestsCreateOneEdge(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, Config{})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}} {
		wg.Go(func() {
			_, err := svc.CreateRequest(ctx, pair[0], pair[1])
			errs <- err
		})
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, models.ErrDuplicateEdge)
			failed++
		}
	}
	require.Equal(t, 1, failed)

	edges, err := store.ListConnections(ctx, "a")
	require.NoError(t, err)
	require.Len(t, edges, 1)
}

func TestService_Respond(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{})

	conn, err := svc.CreateRequest(ctx, "a", "b")
	require.NoError(t, err)

	pending, err := svc.ListPendingForReceiver(ctx, "b")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, conn.ID, pending[0].ID)

	pending, err = svc.ListPendingForReceiver(ctx, "a")
	require.NoError(t, err)
	require.Empty(t, pending)

	_, err = svc.Respond(ctx, conn.ID, "maybe")
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.Respond(ctx, conn.ID, models.ConnectionStatusPending)
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.Respond(ctx, "missing", models.ConnectionStatusAccepted)
	require.ErrorIs(t, err, models.ErrNotFound)

	accepted, err := svc.Respond(ctx, conn.ID, models.ConnectionStatusAccepted)
	require.NoError(t, err)
	require.Equal(t, models.ConnectionStatusAccepted, accepted.Status)
	require.Equal(t, "Ada", accepted.Requester.Name)

	_, err = svc.Respond(ctx, conn.ID, models.ConnectionStatusRejected)
	require.ErrorIs(t, err, models.ErrNotPending)

	for _, user := range []string{"a", "b"} {
		list, err := svc.ListAccepted(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, conn.ID, list[0].ID)
	}

	pending, err = svc.ListPendingForReceiver(ctx, "b")
	require.NoError(t, err)
	require.Empty(t, pending)

	list, err := svc.ListAccepted(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestService_RetryAfterReject(t *testing.T) {
	ctx := context.Background()

	t.Run("Blocked", func(t *testing.T) {
		svc, _ := newTestService(t, Config{})
		conn, err := svc.CreateRequest(ctx, "a", "b")
		require.NoError(t, err)
		_, err = svc.Respond(ctx, conn.ID, models.ConnectionStatusRejected)
		require.NoError(t, err)

		_, err = svc.CreateRequest(ctx, "b", "a")
		require.ErrorIs(t, err, models.ErrDuplicateEdge)
	})

	t.Run("Allowed", func(t *testing.T) {
		svc, _ := newTestService(t, Config{AllowRetryAfterReject: true})
		conn, err := svc.CreateRequest(ctx, "a", "b")
		require.NoError(t, err)
		_, err = svc.Respond(ctx, conn.ID, models.ConnectionStatusRejected)
		require.NoError(t, err)

		retry, err := svc.CreateRequest(ctx, "b", "a")
		require.NoError(t, err)
		require.Equal(t, conn.ID, retry.ID)
		require.Equal(t, "b", retry.Requester.ID)
		require.Equal(t, models.ConnectionStatusPending, retry.Status)
	})
}

func TestService_ListCandidates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Config{})

	ab, err := svc.CreateRequest(ctx, "a", "b")
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, "c", "a")
	require.NoError(t, err)

	candidates, err := svc.ListCandidates(ctx, "a")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	byID := map[string]models.Candidate{}
	for _, c := range candidates {
		byID[c.ID] = c
	}
	require.NotContains(t, byID, "a")
	require.Equal(t, models.RelationOutgoing, byID["b"].Relation)
	require.Equal(t, ab.ID, byID["b"].ConnectionID)
	require.Equal(t, models.RelationIncoming, byID["c"].Relation)

	_, err = svc.Respond(ctx, ab.ID, models.ConnectionStatusAccepted)
	require.NoError(t, err)

	candidates, err = svc.ListCandidates(ctx, "b")
	require.NoError(t, err)
	for _, c := range candidates {
		switch c.ID {
		case "a":
			require.Equal(t, models.RelationConnected, c.Relation)
		case "c":
			require.Equal(t, models.RelationNone, c.Relation)
			require.Empty(t, c.ConnectionID)
		}
	}

	_, err = svc.ListCandidates(ctx, "")
	require.ErrorIs(t, err, models.ErrValidation)
}

type failingStore struct {
	Store
}

func (failingStore) ListProfiles(context.Context) ([]models.Profile, error) {
	return nil, errors.New("disk on fire")
}

func TestService_UpstreamErrors(t *testing.T) {
	svc := NewService(Config{}, failingStore{})

	_, err := svc.ListCandidates(context.Background(), "a")
	require.ErrorIs(t, err, models.ErrUpstream)
}
