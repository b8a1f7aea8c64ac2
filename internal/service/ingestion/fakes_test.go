package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/mamadbah2/salmon-fce/internal/domain/models"
	"github.com/mamadbah2/salmon-fce/internal/repository/mongodb"
)

// memStore is an in-memory BatchWriter keyed by (date, site) that can fail
// the first failures BulkUpsert calls, or the calls numbered in failCalls.
type memStore struct {
	mu        sync.Mutex
	docs      map[models.Key]models.DailyRecord
	failures  int
	failCalls map[int]bool
	failWith  error
	calls     int
	batches   [][]models.DailyRecord
	indexErr  error
	indexCall int
	delay     time.Duration
	spans     []writeSpan
}

// writeSpan is one BulkUpsert call as seen by the store.
type writeSpan struct {
	start, end time.Time
	ok         bool
}

func newMemStore() *memStore {
	return &memStore{docs: map[models.Key]models.DailyRecord{}}
}

func (m *memStore) EnsureIndexes(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexCall++
	return m.indexErr
}

func (m *memStore) BulkUpsert(_ context.Context, records []models.DailyRecord) (mongodb.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	span := writeSpan{start: time.Now()}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	defer func() {
		span.end = time.Now()
		m.spans = append(m.spans, span)
	}()

	if m.failures > 0 || m.failCalls[m.calls] {
		if m.failures > 0 {
			m.failures--
		}
		return mongodb.UpsertResult{}, m.failWith
	}
	span.ok = true

	batch := append([]models.DailyRecord(nil), records...)
	m.batches = append(m.batches, batch)

	var res mongodb.UpsertResult
	for _, r := range records {
		if _, ok := m.docs[r.Key()]; ok {
			res.Matched++
			res.Modified++
		} else {
			res.Upserted++
		}
		m.docs[r.Key()] = r
	}
	return res, nil
}

func (m *memStore) Latest(_ context.Context, site string) (models.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		latest models.DailyRecord
		found  bool
	)
	for k, doc := range m.docs {
		if k.Site == site && (!found || doc.Date > latest.Date) {
			latest, found = doc, true
		}
	}
	if !found {
		return models.DailyRecord{}, mongodb.ErrNotFound
	}
	return latest, nil
}
