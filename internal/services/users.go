package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mediadesk/internal/models"
)

// UsersClient lists and removes user accounts.
type UsersClient struct {
	api *APIService
}

func NewUsersClient(api *APIService) *UsersClient {
	return &UsersClient{api: api}
}

// List returns every user with their subscription status.
func (c *UsersClient) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.api.call(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Delete removes a user account.
func (c *UsersClient) Delete(ctx context.Context, id string) error {
	return c.api.call(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}
