// Package act contains the Supply bounded context: the internal record of
// orders, shipments and receipts exchanged with trading partners.
//
// Key concepts:
//   - Act: a transaction record with a mood (request or event occurrence),
//     a status, identifiers, tags, participations and relationships
//   - Bundle: a set of acts (and any materials created for them) that is
//     committed atomically
//   - Repository: port to the domain store; the store publishes insertion
//     events after each successful write
package act
