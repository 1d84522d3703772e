package health

import (
	"context"
	"errors"
)

// Pinger is the probe surface exposed by backing stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker returns a [Checker] that probes the session store. Stores
// without a ping surface (the in-memory store) report healthy without a probe.
func StoreChecker(store any) Checker {
	return Checker{
		Name: "store",
		Check: func(ctx context.Context) error {
			if p, ok := store.(Pinger); ok {
				return p.Ping(ctx)
			}
			return nil
		},
	}
}

// ProviderChecker returns a [Checker] that reports whether a speech backend
// is configured. Backends are not probed with a live request on every /readyz
// hit — a misconfigured backend surfaces at startup, not at probe time.
func ProviderChecker(name string, configured bool) Checker {
	return Checker{
		Name: "provider:" + name,
		Check: func(context.Context) error {
			if !configured {
				return errors.New("not configured")
			}
			return nil
		},
	}
}
