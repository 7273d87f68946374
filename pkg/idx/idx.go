package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID used to correlate outgoing requests.
// IDs created by the same process sort in creation order.
type ID string

var (
	globalOnce sync.Once
	global     *generator
)

type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) at(t time.Time) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(t), g.entropy)
	if err != nil {
		// Monotonic entropy overflowed inside a single millisecond. Fall back
		// to fresh randomness, ordering within that millisecond is lost.
		u = ulid.MustNew(ulid.Timestamp(t), rand.Reader)
	}
	return ID(u.String())
}

func load() *generator {
	globalOnce.Do(func() {
		global = &generator{entropy: ulid.Monotonic(rand.Reader, 0)}
	})
	return global
}

// New returns a new ID stamped with the current UTC time.
func New() ID {
	return load().at(time.Now().UTC())
}

func (id ID) String() string { return string(id) }
