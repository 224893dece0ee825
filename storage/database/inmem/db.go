// Package inmemdb is an in-memory storage whose writes publish the same change events as the postgres triggers.
package inmemdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/chantier"
	"github.com/deepweb1970/gestionchantier-sub001/core/client"
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
	"github.com/deepweb1970/gestionchantier-sub001/core/heure"
	"github.com/deepweb1970/gestionchantier-sub001/core/materiel"
	"github.com/deepweb1970/gestionchantier-sub001/core/ouvrier"
	"github.com/deepweb1970/gestionchantier-sub001/core/realtime"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

type DB struct {
	pub    realtime.Publisher
	logger core.Logger

	users        *table[user.User]
	clients      *table[client.Client]
	chantiers    *table[chantier.Chantier]
	ouvriers     *table[ouvrier.Ouvrier]
	materiel     *table[materiel.Materiel]
	maintenances *table[materiel.Maintenance]
	factures     *table[facture.Facture]
	saisies      *table[heure.Saisie]

	sequences map[int]int // {year: last invoice number}
	seqMu     sync.Mutex
}

// Open returns an empty DB. `pub` may be nil when change events are not needed.
func Open(pub realtime.Publisher, logger core.Logger) *DB {
	db := &DB{pub: pub, logger: logger, sequences: make(map[int]int)}
	db.users = newTable[user.User](db, user.Collection)
	db.clients = newTable[client.Client](db, client.Collection)
	db.chantiers = newTable[chantier.Chantier](db, chantier.Collection)
	db.ouvriers = newTable[ouvrier.Ouvrier](db, ouvrier.Collection)
	db.materiel = newTable[materiel.Materiel](db, materiel.Collection)
	db.maintenances = newTable[materiel.Maintenance](db, materiel.MaintenanceCollection)
	db.factures = newTable[facture.Facture](db, facture.Collection)
	db.saisies = newTable[heure.Saisie](db, heure.Collection)
	return db
}

func (db *DB) publish(ctx context.Context, collection string, kind realtime.EventKind, payload, oldPayload interface{}) {
	if db.pub == nil {
		return
	}
	evt := realtime.Event{Collection: collection, Kind: kind}
	if payload != nil {
		evt.Payload, _ = json.Marshal(payload)
	}
	if oldPayload != nil {
		evt.OldPayload, _ = json.Marshal(oldPayload)
	}
	if err := db.pub.Publish(ctx, evt); err != nil && db.logger != nil {
		db.logger.Error(fmt.Sprintf("inmemdb: publishing %s on %q: %v", kind, collection, err), err)
	}
}

// table is a map of rows keyed by ID.
type table[T any] struct {
	db   *DB
	name string
	rows map[string]T
	mu   sync.RWMutex
}

func newTable[T any](db *DB, name string) *table[T] {
	return &table[T]{db: db, name: name, rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

// filter returns the rows matching `keep` (all rows when nil), in no particular order.
func (t *table[T]) filter(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

func (t *table[T]) insert(ctx context.Context, id string, row T) {
	t.mu.Lock()
	t.rows[id] = row
	t.mu.Unlock()
	t.db.publish(ctx, t.name, realtime.Insert, row, nil)
}

func (t *table[T]) update(ctx context.Context, id string, row T) bool {
	t.mu.Lock()
	old, ok := t.rows[id]
	if ok {
		t.rows[id] = row
	}
	t.mu.Unlock()

	if ok {
		t.db.publish(ctx, t.name, realtime.Update, row, old)
	}
	return ok
}

func (t *table[T]) delete(ctx context.Context, ids ...string) int {
	deleted := make([]T, 0, len(ids))
	t.mu.Lock()
	for _, id := range ids {
		if row, ok := t.rows[id]; ok {
			delete(t.rows, id)
			deleted = append(deleted, row)
		}
	}
	t.mu.Unlock()

	for _, row := range deleted {
		t.db.publish(ctx, t.name, realtime.Delete, nil, row)
	}
	return len(deleted)
}

// comparer compares 2 rows on one field: negative when a < b, 0 when equal, positive otherwise.
type comparer[T any] func(a, b T) int

// sortRows orders rows according to `ordering`, ignoring unknown fields.
// `fallback` applies when no known field is requested.
func sortRows[T any](rows []T, ordering []core.DBOrdering, fields map[string]comparer[T], fallback ...core.DBOrdering) {
	ords := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := fields[ord.Field]; ok {
			ords = append(ords, ord)
		}
	}
	if len(ords) == 0 {
		ords = fallback
	}
	if len(ords) == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ords {
			c := fields[ord.Field](rows[i], rows[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareStrings(a, b string) int { return strings.Compare(strings.ToLower(a), strings.ToLower(b)) }

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// contains reports whether any of `values` contains `search`, ignoring case.
func contains(search string, values ...string) bool {
	search = strings.ToLower(search)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

func in(val string, list []string) bool {
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

var byCreatedAtDesc = []core.DBOrdering{{Field: "created_at"}}
