package keel

// Registration holds one entry to be registered in a batch.
type Registration struct {
	ID      string
	Value   any
	Options []RegisterOption
}

// Entry creates a Registration for batch registration.
//
// Example:
//
//	keel.RegisterEntries(c,
//	    keel.Entry("db", NewDatabase, keel.Protected()),
//	    keel.Entry("cache", NewCache),
//	)
func Entry(id string, value any, opts ...RegisterOption) Registration {
	return Registration{
		ID:      id,
		Value:   value,
		Options: opts,
	}
}

// RegisterEntries registers multiple entries in a single call.
// Stops at the first failing registration and returns its error.
func RegisterEntries(c Container, entries ...Registration) error {
	for _, e := range entries {
		if err := c.Register(e.ID, e.Value, e.Options...); err != nil {
			return err
		}
	}
	return nil
}

// Aliases maps alias names to entry identifiers for SetAliases.
type Aliases map[string]string

// SetAliases creates every alias in the map and returns the failed results.
func SetAliases(c Container, aliases Aliases) []AliasResult {
	var failed []AliasResult
	for alias, id := range aliases {
		if result := c.SetAlias(alias, id); !result.OK() {
			failed = append(failed, result)
		}
	}
	return failed
}
