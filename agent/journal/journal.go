// Package journal records routing outcomes. Journals sit outside the
// classify/dispatch core: a failed write never changes a reply.
package journal

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
)

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, contractx.JournalEntry) error {
	return nil
}

// Multi writes to every journal and joins their errors.
type Multi []contractx.Journal

func (m Multi) Record(ctx context.Context, entry contractx.JournalEntry) error {
	var errs []error
	for _, j := range m {
		if j == nil {
			continue
		}
		if err := j.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", contractx.ErrJournal, errors.Join(errs...))
}
