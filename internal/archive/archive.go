// Package archive persists completed inspections locally. It shares
// the generic record store with the email outbox but is otherwise a
// plain collection: records are written at finalize time and only ever
// removed through the explicit management deletion path.
package archive

import (
	"sort"
	"time"

	"github.com/tkmserwis/inspektor/internal/db"
	"github.com/tkmserwis/inspektor/internal/logging"
	"github.com/tkmserwis/inspektor/internal/models"
)

var collection = models.Inspection{}.Collection()

// Archive stores completed inspections.
type Archive struct {
	store *db.Store
}

// New creates an Archive over the record store.
func New(store *db.Store) *Archive {
	return &Archive{store: store}
}

// Save records a completed inspection and returns its assigned id.
// CompletedAt and Timestamp are stamped here, at finalize time.
func (a *Archive) Save(insp *models.Inspection) (int64, error) {
	now := time.Now()
	insp.CompletedAt = now.UTC().Format(time.RFC3339)
	insp.Timestamp = now.UnixMilli()

	id, err := a.store.Insert(collection, insp)
	if err != nil {
		return 0, err
	}
	insp.ID = id

	logging.Info("Inspection archived", map[string]interface{}{
		"id":     id,
		"client": insp.ClientName,
	})
	return id, nil
}

// List returns all archived inspections, newest first.
func (a *Archive) List() ([]models.Inspection, error) {
	records, err := a.store.GetAll(collection)
	if err != nil {
		return nil, err
	}

	inspections := make([]models.Inspection, 0, len(records))
	for _, rec := range records {
		var insp models.Inspection
		if err := rec.Decode(&insp); err != nil {
			return nil, err
		}
		insp.ID = rec.ID
		inspections = append(inspections, insp)
	}

	sort.Slice(inspections, func(i, j int) bool {
		return inspections[i].Timestamp > inspections[j].Timestamp
	})
	return inspections, nil
}

// Update replaces an archived inspection, keeping its id.
func (a *Archive) Update(id int64, insp *models.Inspection) error {
	return a.store.Update(collection, id, insp)
}

// Delete removes an inspection from the archive. Absent ids are a
// no-op, matching the store contract.
func (a *Archive) Delete(id int64) error {
	return a.store.Delete(collection, id)
}
