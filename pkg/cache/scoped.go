package cache

// ScopedKeyer wraps a Keyer with a prefix, giving each deployment or dataset
// its own namespace in a shared cache:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "trackview:mongodb://localhost:27017:mytestdb:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// BlocksKey generates a prefixed key for block caching.
func (k *ScopedKeyer) BlocksKey(collection, generation, track string, region RegionKey) string {
	return k.prefix + k.inner.BlocksKey(collection, generation, track, region)
}

// FrameKey generates a prefixed key for frame caching.
func (k *ScopedKeyer) FrameKey(opts FrameKeyOpts) string {
	return k.prefix + k.inner.FrameKey(opts)
}

// GenerationKey generates a prefixed generation key.
func (k *ScopedKeyer) GenerationKey(collection string) string {
	return k.prefix + k.inner.GenerationKey(collection)
}
