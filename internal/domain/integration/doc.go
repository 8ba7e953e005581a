// Package integration contains the core domain of the synchronization hub:
// the connector port every external platform adapter implements, the closed
// failure taxonomy those adapters are allowed to raise, and the durable
// entities tracking configured integrations, entity mappings, sync jobs,
// circuit breaker state and inbound webhook events.
//
// Everything above this package is protocol-agnostic: platform wire formats
// (JSON, XML, signatures, token refresh) stop at the connector boundary in
// internal/infrastructure/connectors.
package integration
