package redis

import "github.com/google/uuid"

// Key layout mirrors the pre-computed-string idiom used by the
// example Redis-backed queues in the corpus: build each prefix once
// per queue name rather than re-concatenating on every call.
type keys struct {
	waiting    string
	processing string
	delayed    string
	dlq        string
	prefix     string
}

func newKeys(prefix, queue string) keys {
	base := prefix + "queue:" + queue + ":"
	return keys{
		waiting:    base + "waiting",
		processing: base + "processing",
		delayed:    base + "delayed",
		dlq:        base + "dlq",
		prefix:     prefix,
	}
}

func (k keys) poison(id uuid.UUID) string {
	return k.prefix + "poison:" + id.String()
}
