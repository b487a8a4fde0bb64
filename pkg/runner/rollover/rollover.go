package rollover

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/daynotes/pkg/printers"
	"tableflip.dev/daynotes/pkg/rollover"
)

// Rollover runs one check, or with Force an unconditional rollover, and
// reports what happened.
type Rollover struct {
	Controller *rollover.Controller
	Force      bool

	Printer printers.PrettyPrint
	JSON    bool
}

func (n *Rollover) Do(ctx context.Context) error {
	if n.Controller == nil {
		return errors.New("can not roll over, no controller")
	}
	var (
		res rollover.Result
		err error
	)
	if n.Force {
		res, err = n.Controller.Rollover(ctx)
	} else {
		res, err = n.Controller.CheckAndRollover(ctx)
	}
	if err != nil {
		return err
	}
	if n.JSON {
		return n.Printer.JSON(res)
	}

	switch {
	case !res.Ran:
		fmt.Println("Notes are from today, nothing to roll over.")
	case res.ArchiveID == "":
		fmt.Println("No notes to archive, checkpoint advanced.")
	default:
		fmt.Printf("Archived %d notes as %s, cleared %d.\n", res.Archived, res.ArchiveID, res.Deleted)
	}
	return nil
}
