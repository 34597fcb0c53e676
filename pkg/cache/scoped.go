package cache

// ScopedKeyer prefixes every key of an inner Keyer, giving each trial
// program or server tenant its own namespace in a shared backend.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "scn-2025:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with prefix. A nil inner means DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// TableKey implements Keyer.
func (k *ScopedKeyer) TableKey(configHash string, opts TableKeyOpts) string {
	return k.prefix + k.inner.TableKey(configHash, opts)
}

// ArtifactKey implements Keyer.
func (k *ScopedKeyer) ArtifactKey(tableHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(tableHash, opts)
}
