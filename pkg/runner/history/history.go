package history

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/printers"
	"tableflip.dev/daynotes/pkg/timeutil"
)

var errNoService = errors.New("can not read history, no service")

// List prints archived days inside a window, grouped by month.
type List struct {
	Service *app.Service
	UID     string
	Window  timeutil.Window

	Printer printers.PrettyPrint
	JSON    bool
}

func (n *List) Do(ctx context.Context) error {
	if n.Service == nil {
		return errNoService
	}
	res, err := n.Service.Report(ctx, n.UID, n.Window)
	if err != nil {
		return err
	}
	if n.JSON {
		out := []note.Archive{}
		for _, s := range res.Sections {
			out = append(out, s.Archives...)
		}
		return n.Printer.JSON(out)
	}
	n.Printer.Report(res, n.Window.Label)
	return nil
}

// Show prints one archived day.
type Show struct {
	Service *app.Service
	UID     string
	ID      string

	Printer printers.PrettyPrint
	JSON    bool
}

func (n *Show) Do(ctx context.Context) error {
	if n.Service == nil {
		return errNoService
	}
	a, err := n.Service.Archive(ctx, n.UID, n.ID)
	if err != nil {
		return err
	}
	if n.JSON {
		return n.Printer.JSON(a)
	}
	n.Printer.Archive(a)
	return nil
}

// Remove deletes archived days. Live notes are never touched.
type Remove struct {
	Service *app.Service
	UID     string
	IDs     []string
}

func (n *Remove) Do(ctx context.Context) error {
	if n.Service == nil {
		return errNoService
	}
	for _, id := range n.IDs {
		if err := n.Service.DeleteArchive(ctx, n.UID, id); err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		fmt.Printf("removed %s\n", id)
	}
	return nil
}
