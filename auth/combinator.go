package auth

// Source looks up a credential the way a KeyRing does, letting
// several stores be combined with All or Any.
type Source interface {
	Lookup(user, authID string, proto Proto) (Key, bool)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(user, authID string, proto Proto) (Key, bool)

func (f SourceFunc) Lookup(user, authID string, proto Proto) (Key, bool) {
	return f(user, authID, proto)
}

// All combines several Sources into one that only reports a match
// when every one of them agrees on the same key: multi-factor lookup,
// where a credential must be present in more than one ring (say a
// primary keyring and a hardware-backed FIDO2 store) to be trusted.
func All(sources ...Source) Source {
	return SourceFunc(func(user, authID string, proto Proto) (Key, bool) {
		var first Key
		for i, s := range sources {
			k, ok := s.Lookup(user, authID, proto)
			if !ok {
				return Key{}, false
			}
			if i == 0 {
				first = k
			}
		}
		if len(sources) == 0 {
			return Key{}, false
		}
		return first, true
	})
}

// Any combines several Sources into one that reports the first match
// any of them finds, checked in order.
func Any(sources ...Source) Source {
	return SourceFunc(func(user, authID string, proto Proto) (Key, bool) {
		for _, s := range sources {
			if k, ok := s.Lookup(user, authID, proto); ok {
				return k, true
			}
		}
		return Key{}, false
	})
}
