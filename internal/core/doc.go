// Package core provides the business logic for multi-tenant asset tracking.
//
// This package holds the domain rules independent of any transport or
// storage engine. Storage is reached only through the ports in ports.go, so
// the same code runs behind the HTTP server, the assetctl CLI and the tests.
//
// # Architecture
//
// Three write paths share one rule set (rules.go):
//
//   - Import: [Service.ImportAssets] reads a CSV (or .xlsx) file, resolves
//     names to ids and stores every valid row in one transaction.
//   - Single record: [Service.CreateAsset] and [Service.UpdateAsset], checked
//     by [Service.ValidateAsset].
//   - Bulk update: [Service.BulkUpdateAssets] applies one sparse change set to
//     many assets at once.
//
// Single and bulk writes append an [AssetHistory] snapshot in the same
// transaction as the change. Imports do not.
//
// # Import Pipeline
//
//  1. The payload is checked against the size ceiling and decoded as UTF-8
//  2. [Tokenize] splits it into rows; [ResolveHeader] maps the header row to roles
//  3. [BuildLookups] indexes the organization's reference data by name and code
//  4. A [RowValidator] checks each data row in a fixed order
//  5. Valid rows are inserted together; rejected rows are reported by row number
//
// Reference names resolve case-insensitively. A name or code shared by two
// records of the same kind resolves to nothing, so a row naming it is
// rejected rather than attached to either record. Label IDs match exactly.
//
// # Error Handling
//
// Request failures are returned as [*Error], which carries the user-facing
// message and the HTTP status. Storage failures are additionally mapped with
// [MapError] to a support code that is logged next to the technical error:
//
//   - DB001-DB007: Database errors (duplicate labels, constraints, connections)
//   - FILE001-FILE004: File errors (size, encoding, missing columns)
//   - IMP001-IMP002: Import limits (rows, concurrency)
package core
