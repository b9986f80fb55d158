// Package models holds the gorm rows behind the ledger and the audit log.
// Domain types never carry gorm tags; each model converts with ToDomain and
// a FromDomain constructor, and repositories only ever touch models.
//
// Quantities live in inventory_units with a CHECK (quantity > 0) constraint,
// so an emptied holding is deleted rather than stored as zero.
package models
