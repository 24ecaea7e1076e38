package cloud

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"evalgo.org/portico/internal/logging"
	"evalgo.org/portico/internal/validation"
	"evalgo.org/portico/models"
)

// Lifecycle creates, upgrades and destroys cloud instances.
type Lifecycle struct {
	client    *Client
	poller    *Poller
	validator *validation.Validator
	logger    *zap.Logger
}

// NewLifecycle creates a lifecycle driver using poller to wait for operations.
func NewLifecycle(client *Client, poller *Poller, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		client:    client,
		poller:    poller,
		validator: validation.New(),
		logger:    logging.OrNop(logger),
	}
}

// Create provisions a new instance and waits until it is available.
func (l *Lifecycle) Create(ctx context.Context, req models.CreateInstanceRequest) error {
	if err := l.validator.Validate(&req).Err(); err != nil {
		return err
	}
	if err := l.client.EnsureAuthenticated(); err != nil {
		return err
	}

	l.logger.Info("Creating cloud instance",
		zap.String("instance", models.InstanceRef(req.Org, req.Name)),
		zap.String("version", req.Version))

	var op models.Operation
	path := fmt.Sprintf("orgs/%s/instances", url.PathEscape(req.Org))
	if err := l.client.Post(ctx, path, &req, &op); err != nil {
		return fmt.Errorf("creating %s: %w", models.InstanceRef(req.Org, req.Name), err)
	}
	_, err := l.poller.Wait(ctx, &op, req.Org, req.Name, "creating")
	return err
}

// Upgrade moves an existing instance to another version and waits until it is
// available again.
func (l *Lifecycle) Upgrade(ctx context.Context, req models.UpgradeInstanceRequest) error {
	if err := l.validator.Validate(&req).Err(); err != nil {
		return err
	}
	if err := l.client.EnsureAuthenticated(); err != nil {
		return err
	}

	l.logger.Info("Upgrading cloud instance",
		zap.String("instance", models.InstanceRef(req.Org, req.Name)),
		zap.String("version", req.Version))

	var op models.Operation
	if err := l.client.Put(ctx, instancePath(req.Org, req.Name), &req, &op); err != nil {
		return fmt.Errorf("upgrading %s: %w", models.InstanceRef(req.Org, req.Name), err)
	}
	_, err := l.poller.Wait(ctx, &op, req.Org, req.Name, "upgrading")
	return err
}

// Destroy deletes an instance. The control plane acknowledges with an
// operation which is not polled.
func (l *Lifecycle) Destroy(ctx context.Context, org, name string) (*models.Operation, error) {
	if err := l.client.EnsureAuthenticated(); err != nil {
		return nil, err
	}

	l.logger.Info("Destroying cloud instance", zap.String("instance", models.InstanceRef(org, name)))

	var op models.Operation
	if err := l.client.Delete(ctx, instancePath(org, name), &op); err != nil {
		return nil, fmt.Errorf("destroying %s: %w", models.InstanceRef(org, name), err)
	}
	return &op, nil
}

// TryDestroy runs Destroy to completion before returning. It is the entry
// point for callers without a context; nothing continues in the background
// after it returns.
func (l *Lifecycle) TryDestroy(org, name string) error {
	_, err := l.Destroy(context.Background(), org, name)
	return err
}
