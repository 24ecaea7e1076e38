package cloud

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evalgo.org/portico/internal/logging"
	"evalgo.org/portico/models"
)

const (
	// DefaultPollInterval is the pause between operation fetches.
	DefaultPollInterval = time.Second

	// DefaultPollTimeout is the hard deadline for an operation to finish.
	DefaultPollTimeout = 5 * time.Minute
)

// Progress is the tick-shaped contract of a progress indicator.
type Progress interface {
	Start()
	Stop()
}

// pollState is the poller's position in the operation state machine.
type pollState int

const (
	pollWaiting pollState = iota
	pollFailed
	pollCompleted
	pollExpired
	pollInvalid
)

// transition decides what the poller does next for the fetched operation.
// Failed and Completed are decided regardless of the deadline; an operation
// still in progress when the deadline passed has expired.
func transition(status models.OperationStatus, expired bool) pollState {
	switch {
	case status == models.OperationInProgress:
		if expired {
			return pollExpired
		}
		return pollWaiting
	case !status.Terminal():
		return pollInvalid
	case status == models.OperationFailed:
		return pollFailed
	default:
		return pollCompleted
	}
}

// Poller drives an operation from in progress to a terminal outcome within a
// fixed wall-clock deadline.
type Poller struct {
	client *Client
	logger *zap.Logger

	// Interval between fetches. Defaults to DefaultPollInterval.
	Interval time.Duration

	// Timeout is the deadline measured from the start of Wait. Defaults to
	// DefaultPollTimeout.
	Timeout time.Duration

	// NewProgress, when set, renders progress text while waiting.
	NewProgress func(message string) Progress

	now func() time.Time
}

// NewPoller creates a poller with the default interval and timeout.
func NewPoller(client *Client, logger *zap.Logger) *Poller {
	return &Poller{
		client:   client,
		logger:   logging.OrNop(logger),
		Interval: DefaultPollInterval,
		Timeout:  DefaultPollTimeout,
		now:      time.Now,
	}
}

// ProgressMessage is the text shown while an operation labeled label runs.
func ProgressMessage(label string) string {
	return fmt.Sprintf("Waiting for the result of cloud instance %s...", label)
}

// Wait polls op until it is terminal. On completion the instance org/name is
// fetched and must be available; otherwise ErrVerificationFailed is
// returned. A failed operation returns *OperationFailedError without further
// polling. If the deadline passes while the operation is in progress, Wait
// returns ErrTimeout.
func (p *Poller) Wait(ctx context.Context, op *models.Operation, org, name, label string) (*models.CloudInstance, error) {
	if p.NewProgress != nil {
		progress := p.NewProgress(ProgressMessage(label))
		progress.Start()
		defer progress.Stop()
	}

	deadline := p.now().Add(p.Timeout)
	for {
		state := transition(op.Status, !p.now().Before(deadline))
		p.logger.Debug("operation status",
			zap.String("operation", op.ID),
			zap.Stringer("status", op.Status),
			zap.String("label", label))

		switch state {
		case pollFailed:
			return nil, &OperationFailedError{OperationID: op.ID, Message: op.Message}
		case pollCompleted:
			return p.verify(ctx, org, name)
		case pollExpired:
			return nil, fmt.Errorf("%s %s: %w", label, models.InstanceRef(org, name), ErrTimeout)
		case pollInvalid:
			return nil, fmt.Errorf("operation %s: unexpected status %s", op.ID, op.Status)
		}

		if err := p.sleep(ctx, deadline); err != nil {
			return nil, err
		}
		next, err := p.client.GetOperation(ctx, op.ID)
		if err != nil {
			return nil, err
		}
		op = next
	}
}

// sleep waits one interval, cut short by the deadline so an expired
// operation is detected on time.
func (p *Poller) sleep(ctx context.Context, deadline time.Time) error {
	d := p.Interval
	if remaining := deadline.Sub(p.now()); remaining < d {
		d = remaining
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Poller) verify(ctx context.Context, org, name string) (*models.CloudInstance, error) {
	inst, err := p.client.FindInstance(ctx, org, name)
	if err != nil {
		return nil, err
	}
	if !inst.IsAvailable() {
		return nil, fmt.Errorf("%s (status %q): %w", inst.Ref(), inst.Status, ErrVerificationFailed)
	}
	return inst, nil
}
