package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tableflip.dev/daynotes/pkg/docstore"
)

// LegacyNotesPath is where earlier releases kept live notes.
func LegacyNotesPath(uid string) string {
	return fmt.Sprintf("users/%s/tasks", uid)
}

// MigrationResult reports what MigrateLegacyNotes moved.
type MigrationResult struct {
	Moved   int
	Skipped int
}

// MigrateLegacyNotes copies every document of the legacy notes collection
// into the live notes collection under the same id, then deletes the
// legacy documents in one batch. Ids already present in the live set are
// left as they are and only removed from the legacy side. Running it again
// after a failure is safe.
func (s *Service) MigrateLegacyNotes(ctx context.Context, uid string) (MigrationResult, error) {
	if err := s.check(uid); err != nil {
		return MigrationResult{}, err
	}
	legacy := s.Store.Collection(LegacyNotesPath(uid))
	notes := s.Store.Collection(docstore.NotesPath(uid))

	docs, err := legacy.List(ctx, docstore.Query{})
	if err != nil {
		return MigrationResult{}, err
	}
	if len(docs) == 0 {
		return MigrationResult{}, nil
	}

	var res MigrationResult
	b := s.Store.Batch()
	for _, d := range docs {
		_, err := notes.Get(ctx, d.ID)
		switch {
		case err == nil:
			res.Skipped++
		case errors.Is(err, docstore.ErrNotFound):
			if err := notes.Set(ctx, d.ID, d.Fields); err != nil {
				return res, fmt.Errorf("app: migrate %s: %w", d.ID, err)
			}
			res.Moved++
		default:
			return res, fmt.Errorf("app: migrate %s: %w", d.ID, err)
		}
		b.Delete(legacy.Path(), d.ID)
	}
	if err := b.Commit(ctx); err != nil {
		return res, fmt.Errorf("app: clear legacy notes: %w", err)
	}
	s.logger().Info("legacy notes migrated",
		zap.String("uid", uid), zap.Int("moved", res.Moved), zap.Int("skipped", res.Skipped))
	return res, nil
}
