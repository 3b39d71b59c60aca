package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/models/dto"
)

// ListPublishedPosts returns the public feed. It needs no token.
func (c *Client) ListPublishedPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/posts", false, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListAllPosts returns drafts and published posts.
func (c *Client) ListAllPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/admin/posts", true, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) CreatePost(ctx context.Context, req dto.CreatePostRequest) (models.Post, error) {
	var post models.Post
	if err := c.doJSON(ctx, http.MethodPost, "/admin/posts", true, req, &post); err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/admin/posts/"+url.PathEscape(id), true, nil, nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.doJSON(ctx, http.MethodGet, "/admin/users", true, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) UpdateUserRole(ctx context.Context, id string, role models.Role) (models.User, error) {
	var user models.User
	path := "/admin/users/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodPatch, path, true, dto.UpdateRoleRequest{Role: string(role)}, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), true, nil, nil)
}

// ListVisits returns visit timestamps from the last days days; zero means all.
func (c *Client) ListVisits(ctx context.Context, days int) ([]time.Time, error) {
	if days < 0 {
		return nil, fmt.Errorf("days must not be negative, got %d", days)
	}
	path := "/admin/visits"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var resp dto.VisitsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, true, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Visits, nil
}
