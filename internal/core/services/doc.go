// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services hold no CGO and reach storage, providers and indexes only
// through driven ports.
package services
