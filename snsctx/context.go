package snsctx

import "context"

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexSession
)

func IsVerbose(ctx context.Context) bool {
	val := ctx.Value(ctxIndexVerbose)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// Session returns the control session identifier carried by ctx, if any.
func Session(ctx context.Context) string {
	val := ctx.Value(ctxIndexSession)
	if val == nil {
		return ""
	}
	return val.(string)
}

func SetSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxIndexSession, id)
}
