// Package brand defines the core types shared across the brand extraction subsystems.
//
// It owns the data model (Result, Candidate, Record), the collaborator interfaces implemented by the
// cache, fetcher, prober, storage, and publisher packages, the URL/domain normalizer, the known-brand
// override table, and the reconciliation rule that corrects stale cached values.
package brand
