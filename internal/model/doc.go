// Package model provides the finalized relational metadata marrow operates
// on: tables, columns, keys, and per-column provider value comparers.
//
// This package contains descriptor types only. All other internal packages
// import model; model imports nothing internal. Descriptors are built once
// when a schema is finalized (see internal/schema) and are immutable
// afterwards - metadata defects surface as constructor errors, never as
// per-row conditions.
//
// Value comparers operate on provider-level representations (what the
// database driver sees), not on application values. Structural equality is
// wrong for several provider types - case-folded strings, byte sequences,
// epsilon floats - so every key column carries its own comparer and the
// write pipeline never falls back to ==.
package model
