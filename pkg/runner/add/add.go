package add

import (
	"context"
	"errors"
	"strings"
	"time"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/printers"
)

type Add struct {
	Service *app.Service
	UID     string
	Message string
	Locale  note.Locale

	Printer printers.PrettyPrint
	JSON    bool
}

func (n *Add) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not add, no service")
	}
	added, err := n.Service.AddNote(ctx, n.UID, strings.TrimSpace(n.Message))
	if err != nil {
		return err
	}
	if n.JSON {
		return n.Printer.JSON(added)
	}

	all, err := n.Service.Notes(ctx, n.UID)
	if err != nil {
		return err
	}
	n.Printer.TitleWithCount(note.Title(time.Now(), n.Locale), len(all))
	n.Printer.Notes(all...)
	return nil
}
