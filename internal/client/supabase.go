package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseAdminClient calls the Supabase Auth admin API with the service
// role key.
type SupabaseAdminClient struct {
	baseURL        string
	serviceRoleKey string
	client         *http.Client
}

// NewSupabaseAdminClient creates a new admin client.
func NewSupabaseAdminClient(baseURL, serviceRoleKey string) *SupabaseAdminClient {
	return &SupabaseAdminClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		serviceRoleKey: serviceRoleKey,
		client:         &http.Client{Timeout: 15 * time.Second},
	}
}

// DeleteUser removes the auth user. A user that no longer exists is not an
// error.
func (c *SupabaseAdminClient) DeleteUser(ctx context.Context, userID string) error {
	if c == nil || c.baseURL == "" || c.serviceRoleKey == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/auth/v1/admin/users/"+userID, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.serviceRoleKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("supabase admin error %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
