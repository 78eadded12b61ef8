package middleware

import "github.com/aretw0/tendril/pkg/ports"

// Middleware allows wrapping a ThreadStore to add behavior.
type Middleware func(ports.ThreadStore) ports.ThreadStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.ThreadStore, mws ...Middleware) ports.ThreadStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
