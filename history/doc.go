// Package history is the run ledger: a sqlite database with one row per run
// and one row per unit outcome. It never influences what gets built.
package history
