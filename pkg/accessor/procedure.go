package accessor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Call validates args, invokes the remote procedure and validates its
// response against the declared return shape. A response that fails the
// shape is a ResponseValidationError even though the transport succeeded.
func (a *Accessor) Call(ctx context.Context, args any) (result any, err error) {
	const op = "call"
	defer func(start time.Time) { a.observe(op, start, err) }(time.Now())

	if err := a.requireKind(op, types.KindProcedure); err != nil {
		return nil, err
	}
	v, err := a.validateArgs(a.endpoint.Args, args, -1)
	if err != nil {
		return nil, err
	}
	raw, err := a.transport.CallProcedure(ctx, a.endpoint.Name, v)
	if err != nil {
		return nil, a.transportErr("call", nil, err)
	}

	res := a.validator.Validate(a.endpoint.Returns, raw)
	if !res.OK() {
		a.metrics.issues(a.endpoint.Name, "response", len(res.Issues()))
		a.logger.Warn("response validation failed", zap.Int("issues", len(res.Issues())))
		return nil, &types.ResponseValidationError{Endpoint: a.endpoint.Name, Issues: res.Issues()}
	}
	return res.Value(), nil
}
