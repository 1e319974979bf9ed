package commands

import (
	"alumconnect/internal/api"
	"alumconnect/internal/config"
	"alumconnect/internal/models"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// AddProfile asks a running server, through its admin API, to create a
// directory profile without a password.
func AddProfile(req api.AddProfileRequest, cfg *config.Config) error {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("http://%s/admin/profiles", cfg.AdminAddr)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to call admin API: %w. Is the server running?", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to add profile (Status: %d): %s", resp.StatusCode, string(body))
	}

	var profile models.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("\nProfile Created Successfully!\n")
	fmt.Printf("ID:    %s\n", profile.ID)
	fmt.Printf("Name:  %s\n", profile.Name)
	fmt.Printf("Role:  %s\n", profile.Role)
	if profile.Email != "" {
		fmt.Printf("Email: %s\n", profile.Email)
	}
	return nil
}
