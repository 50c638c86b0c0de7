// Package quota implements the monthly execution quota: a tier-aware
// admission check before a run starts and a usage debit after it
// succeeds. Cancelled or failed runs are never debited, so quota writes
// happen strictly post-success. The Store interface carries the
// persistence side; sqlitequota and memquota provide implementations.
package quota
