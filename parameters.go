package keel

import "regexp"

// parameterKey is the accepted shape of parameter names. Dots and dashes are
// allowed so configuration paths like "database.dsn" can be used directly.
var parameterKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// SetParameter stores a named value for constructor autowiring. A func value
// with zero arguments, or one argument (the Container or any resolvable
// type), is invoked when the parameter is injected.
func (c *containerImpl) SetParameter(key string, value any) error {
	if !parameterKey.MatchString(key) {
		return ErrInvalidParameterKey(key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.params[key] = value

	return nil
}

// GetParameter returns a parameter's raw value.
func (c *containerImpl) GetParameter(key string) (any, error) {
	value, ok := c.parameter(key)
	if !ok {
		return nil, ErrParameterNotFound(key)
	}

	return value, nil
}

// HasParameter reports whether key is set.
func (c *containerImpl) HasParameter(key string) bool {
	_, ok := c.parameter(key)

	return ok
}

// RemoveParameter deletes key and reports whether it was set.
func (c *containerImpl) RemoveParameter(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.params[key]
	delete(c.params, key)

	return ok
}

func (c *containerImpl) parameter(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.params[key]

	return value, ok
}
