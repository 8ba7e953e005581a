// Package models contains GORM persistence models mapping domain entities
// to their database tables.
//
// Structure:
//   - integration.go: integration accounts, credential records, entity
//     mappings, sync jobs, sync logs, breaker state, webhook events
//   - catalog.go: internal products and imported marketplace orders
//
// Models carry their own conversion methods (ToDomain / FromDomain) so the
// repositories stay thin.
package models
