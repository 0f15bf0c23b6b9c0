package http

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var gridBuildGroup singleflight.Group

// singleflightBuild coalesces concurrent builds of identical reports so
// a burst of equal requests performs the store reads once.
func singleflightBuild(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := gridBuildGroup.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
