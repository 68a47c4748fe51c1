package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kjstillabower/codex-platform-contract/internal/models"
)

// Platform API endpoints, relative to the configured base URL.
const (
	EndpointGetPlatforms      = "get-platforms"
	EndpointGetPlatformByName = "get-platform-by-name"
	EndpointGetPlatformByID   = "get-platform-by-id"
	EndpointAddPlatform       = "add-platform"
	EndpointUpdatePlatform    = "update-platform"
	EndpointDeletePlatform    = "delete-platform"
)

// DeleteConfirmation is the message delete-platform answers with on success.
const DeleteConfirmation = "Platform deleted successfully"

// PlatformAPI is the typed surface of the platform service.
type PlatformAPI interface {
	ListPlatforms(ctx context.Context) ([]models.Platform, error)
	SearchPlatforms(ctx context.Context, name string) ([]models.Platform, error)
	GetPlatformByName(ctx context.Context, name string) (models.Platform, error)
	GetPlatformByID(ctx context.Context, id string) (models.Platform, error)
	AddPlatform(ctx context.Context, name, manufacturer string) (models.Platform, error)
	UpdatePlatform(ctx context.Context, id, name, manufacturer string) (models.Platform, error)
	DeletePlatform(ctx context.Context, id string) (string, error)
}

var _ PlatformAPI = (*Client)(nil)

// ListPlatforms returns every platform.
func (c *Client) ListPlatforms(ctx context.Context) ([]models.Platform, error) {
	return c.listPlatforms(ctx, EndpointGetPlatforms)
}

// SearchPlatforms returns platforms whose name contains name, case-insensitively.
func (c *Client) SearchPlatforms(ctx context.Context, name string) ([]models.Platform, error) {
	q := url.Values{}
	q.Set("name", name)
	return c.listPlatforms(ctx, EndpointGetPlatforms+"?"+q.Encode())
}

func (c *Client) listPlatforms(ctx context.Context, endpoint string) ([]models.Platform, error) {
	var platforms []models.Platform
	if err := c.callInto(ctx, endpoint, &platforms, WithMethod(http.MethodGet)); err != nil {
		return nil, err
	}
	return platforms, nil
}

// GetPlatformByName looks a platform up by its exact name.
func (c *Client) GetPlatformByName(ctx context.Context, name string) (models.Platform, error) {
	var p models.Platform
	err := c.callInto(ctx, EndpointGetPlatformByName, &p, WithBody(models.NameRequest{Name: name}))
	return p, err
}

// GetPlatformByID looks a platform up by its identifier.
func (c *Client) GetPlatformByID(ctx context.Context, id string) (models.Platform, error) {
	var p models.Platform
	err := c.callInto(ctx, EndpointGetPlatformByID, &p, WithBody(models.IDRequest{ID: id}))
	return p, err
}

// AddPlatform creates a platform. The service assigns ID and type.
func (c *Client) AddPlatform(ctx context.Context, name, manufacturer string) (models.Platform, error) {
	var p models.Platform
	err := c.callInto(ctx, EndpointAddPlatform, &p, WithBody(models.AddPlatformRequest{
		Name:         name,
		Manufacturer: manufacturer,
	}))
	if err == nil && p.ID == "" {
		return p, fmt.Errorf("%w: %s: response has no ID", ErrDecode, EndpointAddPlatform)
	}
	return p, err
}

// UpdatePlatform replaces name and manufacturer of the platform keyed by id.
func (c *Client) UpdatePlatform(ctx context.Context, id, name, manufacturer string) (models.Platform, error) {
	var p models.Platform
	err := c.callInto(ctx, EndpointUpdatePlatform, &p, WithBody(models.UpdatePlatformRequest{
		ID:           id,
		Name:         name,
		Manufacturer: manufacturer,
	}))
	return p, err
}

// DeletePlatform removes the platform keyed by id and returns the service's message.
func (c *Client) DeletePlatform(ctx context.Context, id string) (string, error) {
	var resp models.DeleteResponse
	if err := c.callInto(ctx, EndpointDeletePlatform, &resp, WithBody(models.IDRequest{ID: id})); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) callInto(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	result := c.Call(ctx, endpoint, opts...)
	if err := result.Err(); err != nil {
		return err
	}
	if err := result.Response.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, endpoint, err)
	}
	return nil
}
