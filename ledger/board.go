// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package ledger

import (
	"sync"

	"github.com/guilhermeosaka/voxpop-web/models"
)

// Board keeps one Ledger per listed poll, in server order
type Board struct {
	mu      sync.Mutex
	order   []string
	ledgers map[string]*Ledger
}

func NewBoard() *Board {
	return &Board{ledgers: make(map[string]*Ledger)}
}

// Sync applies a fresh poll list. Known polls are re-seeded in place so an
// in-flight toggle sees the version change; new polls get a ledger; polls
// missing from the list are dropped.
func (b *Board) Sync(polls []models.Poll) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[string]*Ledger, len(polls))
	order := make([]string, 0, len(polls))
	for _, p := range polls {
		if _, dup := next[p.ID]; dup {
			continue
		}
		l, ok := b.ledgers[p.ID]
		if ok {
			l.Reseed(p)
		} else {
			l = New(p)
		}
		next[p.ID] = l
		order = append(order, p.ID)
	}
	b.ledgers = next
	b.order = order
}

// Get returns the ledger for pollID
func (b *Board) Get(pollID string) (*Ledger, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.ledgers[pollID]
	return l, ok
}

// Ledgers returns every ledger in server order
func (b *Board) Ledgers() []*Ledger {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Ledger, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.ledgers[id])
	}
	return out
}

func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
