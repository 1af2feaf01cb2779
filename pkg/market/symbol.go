// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package market

import (
	"strings"
	"sync"

	"github.com/zeebo/errs"
)

// MaxSymbolLength bounds ticker symbols accepted by the service.
const MaxSymbolLength = 16

// Symbol is a canonical uppercase ticker.
type Symbol string

// CanonSymbol uppercases and validates a raw ticker string.
func CanonSymbol(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", errs.New("symbol is empty")
	}
	if len(s) > MaxSymbolLength {
		return "", errs.New("symbol %q exceeds %d characters", s, MaxSymbolLength)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.' || c == '-' {
			continue
		}
		return "", errs.New("symbol %q contains invalid character %q", s, c)
	}
	return Symbol(s), nil
}

// InternTable canonicalizes symbols to a single shared value per ticker.
// Entries are never released.
type InternTable struct {
	symbols sync.Map // string -> Symbol
}

// NewInternTable creates an empty intern table.
func NewInternTable() *InternTable { return &InternTable{} }

// Intern validates raw and returns the process-wide canonical Symbol for it.
func (tbl *InternTable) Intern(raw string) (Symbol, error) {
	if cached, ok := tbl.symbols.Load(raw); ok {
		return cached.(Symbol), nil
	}
	canon, err := CanonSymbol(raw)
	if err != nil {
		return "", err
	}
	actual, _ := tbl.symbols.LoadOrStore(raw, canon)
	return actual.(Symbol), nil
}

// Len reports the number of distinct raw spellings interned; "spy" and
// "SPY" count separately although both map to the same Symbol.
func (tbl *InternTable) Len() int {
	n := 0
	tbl.symbols.Range(func(_, _ interface{}) bool { n++; return true })
	return n
}
