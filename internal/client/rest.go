package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"worldconnector/internal/domain"
)

// GetMyProfile fetches the signed-in identity's profile. An unpublished
// profile returns (nil, nil), mirroring the backend's 404 no_profile.
func (c *Client) GetMyProfile(ctx context.Context) (*domain.Profile, error) {
	var profile domain.Profile
	err := c.doJSON(ctx, http.MethodGet, "/api/profiles/me", nil, &profile)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile merge-upserts the signed-in identity's profile. Fields left nil
// in the patch keep their stored values.
func (c *Client) SaveProfile(ctx context.Context, patch domain.ProfilePatch) error {
	if err := c.doJSON(ctx, http.MethodPut, "/api/profiles/me", patch, nil); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// ListProfiles fetches every profile except the caller's own.
func (c *Client) ListProfiles(ctx context.Context) ([]*domain.Profile, error) {
	var resp struct {
		Profiles []*domain.Profile `json:"profiles"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/profiles", nil, &resp); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return resp.Profiles, nil
}

// ListMessages fetches the chat timeline in delivery order.
func (c *Client) ListMessages(ctx context.Context) ([]*domain.ChatMessage, error) {
	var resp struct {
		Messages []*domain.ChatMessage `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/messages", nil, &resp); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return resp.Messages, nil
}

// SendMessage appends text to the global chat and returns the stored record.
func (c *Client) SendMessage(ctx context.Context, text string) (*domain.ChatMessage, error) {
	body := map[string]string{"text": text}

	var msg domain.ChatMessage
	if err := c.doJSON(ctx, http.MethodPost, "/api/messages", body, &msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &msg, nil
}
