package cache

type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Keys() []K
	Len() int
	// Replace swaps the whole content in one step, so readers never see a half-updated table.
	Replace(entries map[K]V)
	Snapshot() map[K]V
}
