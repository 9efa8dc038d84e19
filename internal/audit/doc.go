// Package audit implements the tamper-evident audit trail behind the
// authorization engine. Every grant, denial, check, and context switch is
// appended to a per-user hash chain: each entry's hash covers its own
// canonical content plus the hash of the user's preceding entry, so any
// retroactive modification is detectable by replaying the chain. Entries
// are never deleted; the retention policy moves aged entries to an
// archive table that remains queryable.
package audit
