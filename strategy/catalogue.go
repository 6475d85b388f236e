package strategy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/rustyeddy/ouro/signal"
)

// ErrCatalogueMiss means a code is not in the catalogue. Every valid code is
// enumerated up front, so this is a programming error and callers treat it
// as fatal.
var ErrCatalogueMiss = errors.New("strategy code not in catalogue")

// Entry describes one strategy code.
type Entry struct {
	Code   signal.Code
	Family Family
	Name   string
}

// Catalogue is the immutable enumeration of all strategy codes. It is safe
// for concurrent reads.
type Catalogue struct {
	entries []Entry
}

// NewCatalogue enumerates every code in index order.
func NewCatalogue() *Catalogue {
	cat := &Catalogue{entries: make([]Entry, signal.NumCodes)}
	for i := range cat.entries {
		c, _ := signal.CodeAt(i)
		cat.entries[i] = Entry{Code: c, Family: FamilyOf(c), Name: SignedName(c)}
	}
	return cat
}

// Len is always signal.NumCodes.
func (c *Catalogue) Len() int { return len(c.entries) }

// Entry returns the entry at index i in lexicographic code order.
func (c *Catalogue) Entry(i int) Entry { return c.entries[i] }

// Lookup returns the entry for code.
func (c *Catalogue) Lookup(code signal.Code) (Entry, error) {
	if !code.Valid() {
		return Entry{}, fmt.Errorf("%w: %v", ErrCatalogueMiss, [signal.NumIndicators]signal.Vote(code))
	}
	e := c.entries[code.Index()]
	if e.Code != code {
		return Entry{}, fmt.Errorf("%w: %s", ErrCatalogueMiss, code)
	}
	return e, nil
}

// WriteIndexCSV writes strategy_id,Family,Name for every code. The output is
// the seed for the external performance table.
func (c *Catalogue) WriteIndexCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"strategy_id", "Family", "Name"}); err != nil {
		return err
	}
	for _, e := range c.entries {
		if err := cw.Write([]string{e.Code.String(), e.Family.String(), e.Name}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
