package record

// Diff partitions the run's candidates into records absent from the known
// key set (fresh, source order preserved) and everything else (seen).
// A key repeated within one candidate set is fresh at most once: later
// occurrences are seen regardless of the store, which keeps notification
// at-most-once even when the source duplicates an entry.
// The known set is never mutated.
func Diff(candidates []*EnforcementRecord, known map[string]struct{}) (fresh, seen []*EnforcementRecord) {
	inRun := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := inRun[c.IdentityKey]; dup {
			seen = append(seen, c)
			continue
		}
		inRun[c.IdentityKey] = struct{}{}

		if _, ok := known[c.IdentityKey]; ok {
			seen = append(seen, c)
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh, seen
}
