// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package corpus holds the ordered, index-stable collection of recommendable
// items.
//
// A Corpus is the single authority for row indices: item i occupies row i of
// every facet similarity matrix built from it. Titles are not unique; title
// lookups resolve to the first row carrying the title.
package corpus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/cinefacet/internal/document"
	"github.com/tomtom215/cinefacet/internal/facet"
)

// ErrNotFound is returned when a title or id does not resolve to an item.
var ErrNotFound = errors.New("item not found")

// Item is one recommendable movie.
type Item struct {
	Row     int
	ID      int64
	Title   string
	Docs    map[facet.Facet]string
	Details document.Details
}

// Doc returns the item's document for f.
func (it *Item) Doc(f facet.Facet) string {
	return it.Docs[f]
}

// Corpus is immutable after construction and safe for concurrent reads.
type Corpus struct {
	items   []Item
	byTitle map[string]int
	byID    map[int64]int
}

// New builds a Corpus from items in their final order. Each item's Row is
// overwritten with its position.
func New(items []Item) *Corpus {
	c := &Corpus{
		items:   make([]Item, len(items)),
		byTitle: make(map[string]int, len(items)),
		byID:    make(map[int64]int, len(items)),
	}
	for i, it := range items {
		it.Row = i
		c.items[i] = it
		if _, seen := c.byTitle[it.Title]; !seen {
			c.byTitle[it.Title] = i
		}
		if _, seen := c.byID[it.ID]; !seen {
			c.byID[it.ID] = i
		}
	}
	return c
}

// Len returns the number of items.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Item returns the item at row. It panics if row is out of range.
func (c *Corpus) Item(row int) Item {
	return c.items[row]
}

// Items returns a copy of all items in row order.
func (c *Corpus) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Resolve returns the row of the first item titled title.
func (c *Corpus) Resolve(title string) (int, error) {
	if c == nil {
		return -1, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	row, ok := c.byTitle[title]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	return row, nil
}

// ByID returns the first item with the given id.
func (c *Corpus) ByID(id int64) (Item, error) {
	if c == nil {
		return Item{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	row, ok := c.byID[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return c.items[row], nil
}

// Titles returns every title in row order, duplicates included.
func (c *Corpus) Titles() []string {
	out := make([]string, len(c.items))
	for i := range c.items {
		out[i] = c.items[i].Title
	}
	return out
}

// Search returns up to limit titles starting with prefix, compared without
// case, in row order. Each title appears once. A limit <= 0 means no limit.
func (c *Corpus) Search(prefix string, limit int) []string {
	prefix = strings.ToLower(prefix)
	seen := make(map[string]struct{})
	var out []string
	for i := range c.items {
		title := c.items[i].Title
		if _, dup := seen[title]; dup {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(title), prefix) {
			continue
		}
		seen[title] = struct{}{}
		out = append(out, title)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Documents returns the facet documents of every item in row order.
func (c *Corpus) Documents(f facet.Facet) []string {
	out := make([]string, len(c.items))
	for i := range c.items {
		out[i] = c.items[i].Docs[f]
	}
	return out
}
