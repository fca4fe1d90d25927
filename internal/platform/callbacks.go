package platform

import "sort"

// InsertOrUpdateCallback registers or replaces the handler for key.
func (p *Platform) InsertOrUpdateCallback(key string, cb Callback) {
	if cb == nil {
		cb = NoopCallback
	}
	p.callbacks.Put(key, cb)
}

// Callback returns the handler for key, or NoopCallback when none exists.
func (p *Platform) Callback(key string) Callback {
	cb, ok := p.callbacks.Get(key)
	if !ok {
		return NoopCallback
	}
	return cb
}

func (p *Platform) HasCallback(key string) bool {
	return p.callbacks.Has(key)
}

func (p *Platform) DeleteCallback(key string) {
	p.callbacks.Delete(key)
}

func (p *Platform) CallbackKeys() []string {
	keys := p.callbacks.Keys()
	sort.Strings(keys)
	return keys
}
