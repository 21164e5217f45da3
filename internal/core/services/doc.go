// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on domain and the port interfaces; adapters are
// injected by the composition root in cmd/docsearch.
package services
