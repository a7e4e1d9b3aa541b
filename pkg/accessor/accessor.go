// Package accessor executes validated operations against one endpoint.
//
// One Accessor serves one endpoint descriptor. Every operation follows the
// same contract: validate the input, execute through the Transport, validate
// the response (procedures only) and, after a write, invalidate the affected
// cache scopes through the Coordinator. Invalid input never reaches the
// Transport. See docs/ARCHITECTURE.md § Accessor.
package accessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Transport executes procedure calls and table operations against a
// backend. Errors are opaque except for types.ErrNotFound, which Update and
// Delete may return when no row matches the key.
type Transport interface {
	CallProcedure(ctx context.Context, name string, args any) (any, error)
	// QueryTable returns the rows inside the descriptor's window and, when
	// the descriptor asks for CountExact, the total matching rows computed
	// in the same snapshot.
	QueryTable(ctx context.Context, table string, d query.Descriptor) ([]types.Row, int, error)
	// Insert writes all rows in one statement and returns them as stored.
	Insert(ctx context.Context, table string, rows []types.Row) ([]types.Row, error)
	Update(ctx context.Context, table string, key query.KeyMatch, patch types.Row) (types.Row, error)
	Delete(ctx context.Context, table string, keys query.KeyMatch) error
}

// Validator checks a value against a shape.
type Validator interface {
	Validate(shape *types.Shape, value any) types.ValidationResult
}

// Coordinator is notified after successful writes. Invalidate is fire and
// forget.
type Coordinator interface {
	Invalidate(ctx context.Context, key types.CacheKey)
}

// Accessor errors.
var (
	ErrWrongKind     = errors.New("operation not supported by endpoint kind")
	ErrNoRowReturned = errors.New("transport returned no row")
)

type nopCoordinator struct{}

func (nopCoordinator) Invalidate(context.Context, types.CacheKey) {}

// Accessor runs operations for one endpoint. It holds no mutable state and
// is safe for concurrent use when its collaborators are.
type Accessor struct {
	endpoint    types.Endpoint
	transport   Transport
	validator   Validator
	coordinator Coordinator
	logger      *zap.Logger
	metrics     *Metrics
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithCoordinator sets the cache coordinator notified after writes.
func WithCoordinator(c Coordinator) Option {
	return func(a *Accessor) {
		if c != nil {
			a.coordinator = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Accessor) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records operation metrics.
func WithMetrics(m *Metrics) Option {
	return func(a *Accessor) { a.metrics = m }
}

// New returns an Accessor for endpoint. Table descriptors are completed
// (derived create and update shapes) and the result is validated.
func New(endpoint types.Endpoint, t Transport, v Validator, opts ...Option) (*Accessor, error) {
	if t == nil || v == nil {
		return nil, fmt.Errorf("new accessor %q: transport and validator are required", endpoint.Name)
	}
	endpoint = endpoint.Complete()
	if err := endpoint.Validate(); err != nil {
		return nil, fmt.Errorf("new accessor: %w", err)
	}
	a := &Accessor{
		endpoint:    endpoint,
		transport:   t,
		validator:   v,
		coordinator: nopCoordinator{},
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	a.logger = a.logger.With(zap.String("endpoint", endpoint.Name))
	return a, nil
}

// Endpoint returns the descriptor the accessor serves.
func (a *Accessor) Endpoint() types.Endpoint { return a.endpoint }

func (a *Accessor) requireKind(op string, kind types.EndpointKind) error {
	if a.endpoint.Kind != kind {
		return fmt.Errorf("%s %s: %w (%s)", op, a.endpoint.Name, ErrWrongKind, a.endpoint.Kind)
	}
	return nil
}

// validateArgs validates input against shape. index is -1 outside bulk
// calls.
func (a *Accessor) validateArgs(shape *types.Shape, input any, index int) (any, error) {
	res := a.validator.Validate(shape, input)
	if res.OK() {
		return res.Value(), nil
	}
	a.metrics.issues(a.endpoint.Name, "argument", len(res.Issues()))
	a.logger.Warn("argument validation failed",
		zap.Int("index", index),
		zap.Int("issues", len(res.Issues())))
	return nil, &types.ArgumentValidationError{Endpoint: a.endpoint.Name, Index: index, Issues: res.Issues()}
}

// transportErr wraps a transport failure, mapping ErrNotFound on keyed
// writes to a NotFoundError.
func (a *Accessor) transportErr(op string, key any, err error) error {
	if key != nil && errors.Is(err, types.ErrNotFound) {
		return &types.NotFoundError{Endpoint: a.endpoint.Name, Key: key}
	}
	a.logger.Error("transport failed", zap.String("op", op), zap.Error(err))
	return &types.TransportError{Endpoint: a.endpoint.Name, Op: op, Cause: err}
}

// invalidate notifies the coordinator. It runs after the transport has
// completed, so it ignores cancellation of the caller's context.
func (a *Accessor) invalidate(ctx context.Context, keys ...types.CacheKey) {
	ctx = context.WithoutCancel(ctx)
	for _, k := range keys {
		a.coordinator.Invalidate(ctx, k)
	}
}

// observe records the duration and result of one operation.
func (a *Accessor) observe(op string, start time.Time, err error) {
	a.metrics.observe(a.endpoint.Name, op, time.Since(start), err)
	if err == nil {
		a.logger.Debug("operation completed", zap.String("op", op), zap.Duration("took", time.Since(start)))
	}
}

func missingKey(v any) bool {
	switch k := v.(type) {
	case nil:
		return true
	case string:
		return k == ""
	}
	return false
}

func (a *Accessor) keyIssue(index int) error {
	return &types.ArgumentValidationError{
		Endpoint: a.endpoint.Name,
		Index:    index,
		Issues:   []types.Issue{{Path: a.endpoint.PrimaryKey, Message: "is required"}},
	}
}
