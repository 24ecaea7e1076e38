package cloud

import (
	"context"
	"fmt"
	"net/url"

	"evalgo.org/portico/models"
)

func instancePath(org, name string) string {
	return fmt.Sprintf("orgs/%s/instances/%s", url.PathEscape(org), url.PathEscape(name))
}

// FindInstance fetches one instance record.
func (c *Client) FindInstance(ctx context.Context, org, name string) (*models.CloudInstance, error) {
	var inst models.CloudInstance
	if err := c.Get(ctx, instancePath(org, name), &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// ListInstances fetches every instance visible to the authenticated principal.
func (c *Client) ListInstances(ctx context.Context) ([]models.CloudInstance, error) {
	var instances []models.CloudInstance
	if err := c.Get(ctx, "instances/", &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

// GetOperation fetches an operation by ID.
func (c *Client) GetOperation(ctx context.Context, id string) (*models.Operation, error) {
	var op models.Operation
	if err := c.Get(ctx, "operations/"+url.PathEscape(id), &op); err != nil {
		return nil, err
	}
	return &op, nil
}
