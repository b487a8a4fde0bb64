package rm

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/daynotes/pkg/app"
)

// Remove deletes live notes by id. It stops at the first failure.
type Remove struct {
	Service *app.Service
	UID     string
	IDs     []string
}

func (n *Remove) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not remove, no service")
	}
	for _, id := range n.IDs {
		if err := n.Service.DeleteNote(ctx, n.UID, id); err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		fmt.Printf("removed %s\n", id)
	}
	return nil
}
