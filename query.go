package keel

// EntryInfo contains diagnostic information about an entry.
type EntryInfo struct {
	ID           string
	Type         string // dynamic type once a value is held, "unknown" before
	Aliases      []string
	Frozen       bool
	Protected    bool
	Pending      bool // a factory has not run yet
	Autowired    bool
	Dependencies []string
}

// EntryQuery defines criteria for querying entries.
type EntryQuery struct {
	// Frozen filters by frozen state. nil matches all entries.
	Frozen *bool

	// Protected filters by protection. nil matches all entries.
	Protected *bool

	// Pending filters by whether a factory is still waiting to run.
	// nil matches all entries.
	Pending *bool

	// Autowired filters by whether the entry is built by autowiring.
	// nil matches all entries.
	Autowired *bool

	// Alias keeps only entries reachable through this alias.
	// Empty string matches all entries.
	Alias string
}

// Query returns detailed information about entries matching the query criteria.
//
// Example:
//
//	// Find every entry that still has to be built
//	pending := true
//	results := keel.Query(c, keel.EntryQuery{Pending: &pending})
func Query(c Container, query EntryQuery) []EntryInfo {
	var results []EntryInfo

	for _, id := range c.Entries() {
		info := c.Inspect(id)

		if query.Frozen != nil && info.Frozen != *query.Frozen {
			continue
		}

		if query.Protected != nil && info.Protected != *query.Protected {
			continue
		}

		if query.Pending != nil && info.Pending != *query.Pending {
			continue
		}

		if query.Autowired != nil && info.Autowired != *query.Autowired {
			continue
		}

		if query.Alias != "" && !contains(info.Aliases, query.Alias) {
			continue
		}

		results = append(results, info)
	}

	return results
}

// QueryIDs returns the identifiers of entries matching the query criteria.
func QueryIDs(c Container, query EntryQuery) []string {
	results := Query(c, query)
	ids := make([]string, len(results))
	for i, info := range results {
		ids[i] = info.ID
	}
	return ids
}

// FindFrozen returns all entries whose factory has already run.
func FindFrozen(c Container) []EntryInfo {
	frozen := true
	return Query(c, EntryQuery{Frozen: &frozen})
}

// FindPending returns all entries whose factory has not run yet.
func FindPending(c Container) []EntryInfo {
	pending := true
	return Query(c, EntryQuery{Pending: &pending})
}

// FindProtected returns all protected entries.
func FindProtected(c Container) []EntryInfo {
	protected := true
	return Query(c, EntryQuery{Protected: &protected})
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
