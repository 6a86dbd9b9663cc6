package context

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

type Key string

const (
	Params    Key = "params"
	RequestID Key = "request_id"
)

// ParamsFrom returns the route parameters injected by the router, or nil.
func ParamsFrom(ctx context.Context) httprouter.Params {
	ps, _ := ctx.Value(Params).(httprouter.Params)
	return ps
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestID).(string)
	return id
}
