package list

import (
	"context"
	"errors"
	"time"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/printers"
)

type List struct {
	Service *app.Service
	UID     string
	Locale  note.Locale

	Printer printers.PrettyPrint
	JSON    bool
}

func (n *List) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not list, no service")
	}
	all, err := n.Service.Notes(ctx, n.UID)
	if err != nil {
		return err
	}
	if n.JSON {
		if all == nil {
			all = []note.Note{}
		}
		return n.Printer.JSON(all)
	}
	n.Printer.TitleWithCount(note.Title(time.Now(), n.Locale), len(all))
	n.Printer.Notes(all...)
	return nil
}
