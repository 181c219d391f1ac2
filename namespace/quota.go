package namespace

// QuotaUnset marks a quota field as not configured.
const QuotaUnset int64 = -1

// QuotaCounts accumulates namespace (entry count) and diskspace (replicated
// byte count) totals bottom-up over a subtree. Deletion operations return
// QuotaCounts deltas, negative when space is freed.
type QuotaCounts struct {
	Namespace int64
	Diskspace int64
}

// Add accumulates other into q and returns q.
func (q *QuotaCounts) Add(other QuotaCounts) *QuotaCounts {
	q.Namespace += other.Namespace
	q.Diskspace += other.Diskspace
	return q
}

// Negate returns the negated counts, for reporting freed space as a delta.
func (q QuotaCounts) Negate() QuotaCounts {
	return QuotaCounts{Namespace: -q.Namespace, Diskspace: -q.Diskspace}
}
