package cache

// Every policy core must present the same operation surface.
var (
	_ Interface[string, int] = (*LRU[string, int])(nil)
	_ Interface[string, int] = (*LRUK[string, int])(nil)
	_ Interface[string, int] = (*LFU[string, int])(nil)
	_ Interface[string, int] = (*ARC[string, int])(nil)
)
