package keel

import (
	"strings"

	"go.uber.org/zap"
)

// AliasResult reports the outcome of an alias mutation. Alias failures never
// interrupt a setup sequence; callers that care inspect OK or Err, and
// Container allows chaining regardless of the outcome:
//
//	c.SetAlias("db", keel.IDOf[*Database]()).Container().SetAlias("database", "")
type AliasResult struct {
	container Container
	alias     string
	target    string
	err       error
}

// OK reports whether the alias was created.
func (r AliasResult) OK() bool {
	return r.err == nil
}

// Err returns the reason the alias was rejected, or nil.
func (r AliasResult) Err() error {
	return r.err
}

// Alias returns the alias name.
func (r AliasResult) Alias() string {
	return r.alias
}

// Target returns the canonical identifier the alias points at. It is empty
// when the alias was rejected.
func (r AliasResult) Target() string {
	return r.target
}

// Container returns the container the alias was applied to.
func (r AliasResult) Container() Container {
	return r.container
}

// SetAlias points alias at id. An empty id means the last registered
// identifier.
func (c *containerImpl) SetAlias(alias, id string) AliasResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setAlias(alias, id, false)
}

// SetGlobalAlias creates a protected alias that also resolves
// case-insensitively.
func (c *containerImpl) SetGlobalAlias(alias, id string) AliasResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setAlias(alias, id, true)
}

// ProtectAlias marks an alias immutable.
func (c *containerImpl) ProtectAlias(alias string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.aliases[alias]
	if !ok {
		return false
	}

	a.protected = true

	return true
}

// RemoveAlias drops an unprotected alias.
func (c *containerImpl) RemoveAlias(alias string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.aliases[alias]
	if !ok || a.protected {
		return false
	}

	c.dropAlias(alias)

	return true
}

// LastAliasStatus reports whether the most recent alias mutation succeeded.
func (c *containerImpl) LastAliasStatus() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastAliasOK
}

// setAlias must be called with mu held.
func (c *containerImpl) setAlias(alias, id string, global bool) AliasResult {
	if id == "" {
		id = c.lastID
	}

	result := AliasResult{container: c, alias: alias}

	target := c.canonical(id)

	_, shadowed := c.entries[alias]
	existing, exists := c.aliases[alias]

	switch {
	case alias == "" || id == "" || alias == target:
		result.err = ErrAliasInvalid
	case shadowed:
		result.err = ErrAliasShadowed
	case exists && existing.protected && existing.target == target:
		// Re-pointing a protected alias at its current target changes nothing.
		result.target = target
	case c.aliasProtected(alias):
		result.err = ErrAliasProtected
	default:
		if _, ok := c.entries[target]; !ok {
			result.err = ErrAliasTargetMissing

			break
		}

		c.aliases[alias] = &aliasEntry{target: target, protected: global}
		if global {
			c.lowerAliases[strings.ToLower(alias)] = alias
		}

		result.target = target
	}

	c.lastAliasOK = result.err == nil

	if result.err != nil {
		c.logger.Debug("alias rejected",
			zap.String("alias", alias),
			zap.String("target", id),
			zap.Error(result.err),
		)
	}

	return result
}

// aliasProtected reports whether alias, or the global alias sharing its
// lowercase form, is protected (must hold mu).
func (c *containerImpl) aliasProtected(alias string) bool {
	if a, ok := c.aliases[alias]; ok && a.protected {
		return true
	}

	if global, ok := c.lowerAliases[strings.ToLower(alias)]; ok {
		if a, ok := c.aliases[global]; ok && a.protected {
			return true
		}
	}

	return false
}

// dropAlias removes alias and its lowercase index entry (must hold mu).
func (c *containerImpl) dropAlias(alias string) {
	delete(c.aliases, alias)

	lower := strings.ToLower(alias)
	if c.lowerAliases[lower] == alias {
		delete(c.lowerAliases, lower)
	}
}
