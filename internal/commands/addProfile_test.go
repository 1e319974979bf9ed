package commands

import (
	"alumconnect/internal/api"
	"alumconnect/internal/config"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddProfile(t *testing.T) {
	var got api.AddProfileRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/profiles", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"p1","name":"Ada","role":"alumni"}`))
	}))
	defer srv.Close()

	cfg := &config.Config{AdminAddr: strings.TrimPrefix(srv.URL, "http://")}
	require.NoError(t, AddProfile(api.AddProfileRequest{Name: "Ada", Role: "alumni"}, cfg))
	require.Equal(t, "Ada", got.Name)
}

func TestAddProfile_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"user already exists"}`))
	}))
	defer srv.Close()

	cfg := &config.Config{AdminAddr: strings.TrimPrefix(srv.URL, "http://")}
	err := AddProfile(api.AddProfileRequest{Name: "Ada"}, cfg)
	require.ErrorContains(t, err, "user already exists")
}
