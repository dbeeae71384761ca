package session

// Cached holds a value persisted from an earlier run that must be checked
// against the filesystem once before it is trusted. A value equal to the
// sentinel is never trusted.
type Cached[T comparable] struct {
	value    T
	sentinel T
	verified bool
}

// NewCached returns a cache holding value. sentinel marks "never computed".
func NewCached[T comparable](value, sentinel T) Cached[T] {
	return Cached[T]{value: value, sentinel: sentinel}
}

// Peek returns the held value without verifying it.
func (c *Cached[T]) Peek() T { return c.value }

// Stale reports whether the next GetOrRecompute will call recompute.
func (c *Cached[T]) Stale() bool {
	return !c.verified || c.value == c.sentinel
}

// Set stores a freshly computed value.
func (c *Cached[T]) Set(v T) {
	c.value = v
	c.verified = true
}

// Load stores a value read back from disk. It will be verified on first use.
func (c *Cached[T]) Load(v T) {
	c.value = v
	c.verified = false
}

// Invalidate resets the cache to the sentinel.
func (c *Cached[T]) Invalidate() {
	c.value = c.sentinel
	c.verified = false
}

// GetOrRecompute returns the cached value, calling recompute first when the
// cache is stale. changed reports whether recompute produced a value that
// differs from the one held before, in which case the caller must persist
// it. On error the previous value is returned and the cache stays stale.
func (c *Cached[T]) GetOrRecompute(recompute func() (T, error)) (v T, changed bool, err error) {
	if !c.Stale() {
		return c.value, false, nil
	}
	fresh, err := recompute()
	if err != nil {
		return c.value, false, err
	}
	changed = fresh != c.value
	c.Set(fresh)
	return fresh, changed, nil
}
