// Package models holds the GORM row types behind the marketplace
// repositories. Domain types carry no ORM tags; each model converts to and
// from its aggregate with ToDomain and a FromDomain constructor.
//
// Status history and tracking updates are append-only child tables keyed by
// their parent's ID and a per-parent sequence.
package models
