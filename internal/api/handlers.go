package api

import (
	"alumconnect/internal/auth"
	"alumconnect/internal/community"
	"alumconnect/internal/connections"
	"alumconnect/internal/models"
	"alumconnect/internal/ws"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type MessageStore interface {
	ListRecentMessages(ctx context.Context, channel string, limit int) ([]models.ChatMessage, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
}

// DefaultChannel is the channel whose history is returned when a request names none.
const DefaultChannel = "general"

type Config struct {
	HistoryLimit   int
	DefaultChannel string
}

type API struct {
	cfg       Config
	auth      *auth.AuthService
	hub       *ws.Hub
	messages  MessageStore
	profiles  ProfileStore
	graph     *connections.Service
	community *community.Service
	validate  *validator.Validate
}

func New(
	cfg Config,
	authService *auth.AuthService,
	hub *ws.Hub,
	messages MessageStore,
	profiles ProfileStore,
	graph *connections.Service,
	board *community.Service,
) *API {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.DefaultChannel == "" {
		cfg.DefaultChannel = DefaultChannel
	}
	return &API{
		cfg:       cfg,
		auth:      authService,
		hub:       hub,
		messages:  messages,
		profiles:  profiles,
		graph:     graph,
		community: board,
		validate:  newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors to status codes. Upstream failures are logged
// and reported without detail.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrDuplicateEdge),
		errors.Is(err, models.ErrUserExists):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotPending):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, models.APIError{Error: msg})
}

// decode reads a JSON body into v and runs its validate tags.
func (a *API) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", models.ErrValidation)
	}
	if err := a.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %s", models.ErrValidation, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

func (a *API) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("AlumConnect server is running\n"))
}

func (a *API) ChannelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.hub.Channels())
}

func (a *API) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	channel := strings.TrimSpace(r.URL.Query().Get("channel"))
	if channel == "" {
		channel = a.cfg.DefaultChannel
	}

	msgs, err := a.messages.ListRecentMessages(r.Context(), channel, a.cfg.HistoryLimit)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrUpstream, err))
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type ConnectionRequestBody struct {
	RequesterID string `json:"requesterId" validate:"required"`
	ReceiverID  string `json:"receiverId" validate:"required,nefield=RequesterID"`
}

type RespondBody struct {
	Status models.ConnectionStatus `json:"status" validate:"required,oneof=accepted rejected"`
}

func (a *API) CandidatesHandler(w http.ResponseWriter, r *http.Request) {
	candidates, err := a.graph.ListCandidates(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (a *API) CreateConnectionHandler(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequestBody
	if err := a.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	conn, err := a.graph.CreateRequest(r.Context(), req.RequesterID, req.ReceiverID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (a *API) PendingConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	pending, err := a.graph.ListPendingForReceiver(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (a *API) RespondConnectionHandler(w http.ResponseWriter, r *http.Request) {
	var req RespondBody
	if err := a.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	conn, err := a.graph.Respond(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (a *API) AcceptedConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	accepted, err := a.graph.ListAccepted(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accepted)
}

func (a *API) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := a.auth.Signup(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := a.auth.Login(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func getToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.Header.Get("token")
}

// MeHandler returns the profile a session token was issued to.
func (a *API) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := a.auth.GetUserID(getToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := a.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			err = fmt.Errorf("%w: %v", models.ErrUpstream, err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) ListPostsHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := a.community.ListPosts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (a *API) CreatePostHandler(w http.ResponseWriter, r *http.Request) {
	var req community.NewPost
	if err := a.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := a.community.CreatePost(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (a *API) ListGroupsHandler(w http.ResponseWriter, r *http.Request) {
	groups, err := a.community.ListGroups(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (a *API) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req community.NewGroup
	if err := a.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, err := a.community.CreateGroup(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (a *API) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.community.ListJobs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (a *API) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	var req community.NewJob
	if err := a.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	job, err := a.community.CreateJob(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}
