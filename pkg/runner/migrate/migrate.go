package migrate

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/printers"
)

// Migrate moves notes written under the legacy collection into the live one.
type Migrate struct {
	Service *app.Service
	UID     string

	Printer printers.PrettyPrint
	JSON    bool
}

func (n *Migrate) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not migrate, no service")
	}
	res, err := n.Service.MigrateLegacyNotes(ctx, n.UID)
	if err != nil {
		return err
	}
	if n.JSON {
		return n.Printer.JSON(res)
	}
	fmt.Printf("Moved %d notes from %s, skipped %d.\n", res.Moved, app.LegacyNotesPath(n.UID), res.Skipped)
	return nil
}
