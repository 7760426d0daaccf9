// Package delivery defines the contract every transport entrypoint
// implements, so main can start them uniformly.
package delivery

import "context"

// Delivery is a serving surface (currently only the HTTP server).
type Delivery interface {
	// Serve blocks until the delivery stops or fails.
	Serve(ctx context.Context) error
}
