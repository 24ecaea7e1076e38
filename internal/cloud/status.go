package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"evalgo.org/portico/internal/collect"
	"evalgo.org/portico/internal/logging"
	"evalgo.org/portico/models"
)

const (
	// DefaultListTimeout bounds the initial instance list fetch.
	DefaultListTimeout = 30 * time.Second

	// DefaultProbeConcurrency is the number of instances probed at once.
	DefaultProbeConcurrency = 4
)

// Aggregator lists every cloud instance together with a live probe.
type Aggregator struct {
	client *Client
	prober Prober
	logger *zap.Logger

	// ListTimeout bounds the instance list fetch.
	ListTimeout time.Duration

	// Concurrency caps parallel probes.
	Concurrency int
}

// NewAggregator creates an aggregator probing up to concurrency instances at once.
func NewAggregator(client *Client, prober Prober, concurrency int, logger *zap.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = DefaultProbeConcurrency
	}
	return &Aggregator{
		client:      client,
		prober:      prober,
		logger:      logging.OrNop(logger),
		ListTimeout: DefaultListTimeout,
		Concurrency: concurrency,
	}
}

// List returns the status of every instance in list order. A failed or timed
// out list fetch fails the whole call. A failure for one instance is added
// to errs and the instance is left out; it never aborts the batch.
func (a *Aggregator) List(ctx context.Context, errs *collect.Collector) ([]models.RemoteStatus, error) {
	if err := a.client.EnsureAuthenticated(); err != nil {
		return nil, err
	}

	instances, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*models.RemoteStatus, len(instances))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Concurrency)
	for i := range instances {
		i := i
		inst := &instances[i]
		g.Go(func() error {
			status, err := a.probe(gctx, inst)
			if err != nil {
				a.logger.Debug("probe failed", zap.String("instance", inst.Ref()), zap.Error(err))
				errs.Add(fmt.Errorf("probing %s: %w", inst.Ref(), err))
				return nil
			}
			results[i] = status
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.RemoteStatus, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (a *Aggregator) fetch(ctx context.Context) ([]models.CloudInstance, error) {
	lctx, cancel := context.WithTimeout(ctx, a.ListTimeout)
	defer cancel()

	instances, err := a.client.ListInstances(lctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(lctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w with Cloud API", ErrTimeout)
		}
		return nil, fmt.Errorf("failed with Cloud API: %w", err)
	}
	return instances, nil
}

func (a *Aggregator) probe(ctx context.Context, inst *models.CloudInstance) (*models.RemoteStatus, error) {
	creds := AsCredentials(inst, a.client)
	result, err := a.prober.Probe(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &models.RemoteStatus{
		Name:           inst.Ref(),
		Kind:           models.RemoteKindCloud,
		InstanceID:     inst.ID,
		Host:           creds.Host,
		Port:           creds.Port,
		Probe:          result,
		InstanceStatus: inst.Status,
	}, nil
}
