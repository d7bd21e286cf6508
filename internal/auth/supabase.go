// server/internal/auth/supabase.go
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mediradar-api-server/config"

	"github.com/go-resty/resty/v2"
)

// SupabaseClient calls the Supabase Auth REST API with the service role key.
type SupabaseClient struct {
	http        *resty.Client
	serviceRole string
	configured  bool
}

func NewSupabaseClient(cfg config.SupabaseConfig) *SupabaseClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("apikey", cfg.ServiceRole)

	return &SupabaseClient{http: client, serviceRole: cfg.ServiceRole, configured: cfg.Configured()}
}

// Resolve looks the token up with GET /auth/v1/user.
func (c *SupabaseClient) Resolve(ctx context.Context, token string) (*User, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	if token == "" {
		return nil, ErrInvalidToken
	}
	var user User
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("supabase get user: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden,
		resp.StatusCode() == http.StatusNotFound:
		return nil, ErrInvalidToken
	case resp.IsError():
		return nil, fmt.Errorf("supabase get user: status %d", resp.StatusCode())
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &user, nil
}

type listUsersResponse struct {
	Users []User `json:"users"`
	Total *int   `json:"total"`
}

// CountUsers asks the admin API for a one-row page and reads the total from X-Total-Count.
func (c *SupabaseClient) CountUsers(ctx context.Context) (int, error) {
	if !c.configured {
		return 0, ErrNotConfigured
	}
	var body listUsersResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.serviceRole).
		SetQueryParam("page", "1").
		SetQueryParam("per_page", "1").
		SetResult(&body).
		Get("/auth/v1/admin/users")
	if err != nil {
		return 0, fmt.Errorf("supabase list users: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("supabase list users: status %d", resp.StatusCode())
	}
	if total := resp.Header().Get("X-Total-Count"); total != "" {
		if n, err := strconv.Atoi(total); err == nil {
			return n, nil
		}
	}
	if body.Total != nil {
		return *body.Total, nil
	}
	return len(body.Users), nil
}
