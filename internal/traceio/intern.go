package traceio

// interner deduplicates the strings of one stream. Traces repeat a handful
// of names and categories across millions of events; after interning every
// event shares one copy.
type interner struct {
	index map[string]string
	// limit caps the table so streams of unique names do not grow it forever.
	limit int
}

const defaultInternLimit = 1 << 16

func newInterner(limit int) *interner {
	return &interner{index: make(map[string]string, 64), limit: limit}
}

// intern returns the shared copy of s, adding s when there is room.
func (i *interner) intern(s string) string {
	if s == "" {
		return ""
	}
	if v, ok := i.index[s]; ok {
		return v
	}
	if len(i.index) >= i.limit {
		return s
	}
	i.index[s] = s
	return s
}

// Len returns the number of distinct strings held.
func (i *interner) Len() int { return len(i.index) }
