package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// monotonic so ids minted in the same millisecond still sort
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID for the current time.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID whose timestamp is t. Journal records use the
// decision time so ids sort with the session, not with the wall clock of a
// replay.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// monotonic entropy overflowed inside one millisecond
		panic(err)
	}
	return id.String()
}

// ClientOrderID tags an order with the ticker so broker-side lists are
// readable, e.g. "IBM-01HX...".
func ClientOrderID(ticker string, t time.Time) string {
	return strings.ToUpper(ticker) + "-" + NewAt(t)
}

// Time extracts the timestamp of a ULID or of a ClientOrderID.
func Time(s string) (time.Time, error) {
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		s = s[i+1:]
	}
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	return ulid.Time(u.Time()).UTC(), nil
}
