// Package domain contains the core domain types for mongoship.
//
// This package is the innermost layer of the application. It has no
// dependencies on infrastructure concerns (network, file system, logging).
// Documents are modelled with the BSON primitive types (bson.D, bson.A)
// because they are ordered and carry typed scalars such as decimals and
// datetimes without loss.
//
// # Types
//
//   - [Action]: the write verb applied to an event (insert, update, replace)
//   - [WriteOp]: a closed set of write operations built per event
//   - [ConfigError]: a named configuration violation with a readable reason
//   - [WriteError]: a structured failure reported by a store adapter
package domain
