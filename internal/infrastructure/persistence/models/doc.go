// Package models contains the GORM persistence models behind the domain store.
// Domain types stay free of ORM tags; each model converts to and from its
// domain counterpart.
//
// Tables:
//   - authorities: identifier namespaces (GLN, GTIN, partner-scoped children)
//   - places, place_identifiers: facilities
//   - materials, material_identifiers: generic products and manufactured lots
//   - acts and their child collections (act_identifiers, act_tags,
//     act_participations, act_relationships, act_notes, act_extensions)
//   - queue_entries: the database-backed message queues
//
// act_identifiers carries a unique index on (authority_id, value); it is the
// store-level guard against importing the same partner document twice.
package models
