package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dailyfinance/internal/entry"
)

// SubmitEntries creates one entry per payload from the interactive form,
// owned by actor.
//
// Every payload is checked before anything is written: a missing field,
// non-numeric amount, bad date or unknown type fails the whole batch and
// nothing is created. A store failure part-way through is returned as-is;
// entries created before it are kept.
func SubmitEntries(ctx context.Context, store entry.Store, actor string, payloads []EntryPayload) (*SubmitResult, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, fmt.Errorf("%w: owner", ErrMissingField)
	}
	if len(payloads) == 0 {
		return nil, ErrNoEntries
	}

	pending := make([]entry.NewEntry, len(payloads))
	for i, p := range payloads {
		n, err := payloadToEntry(p)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		n.Owner = actor
		pending[i] = n
	}

	result := &SubmitResult{Status: "success", IDs: make([]string, 0, len(pending))}
	for i, n := range pending {
		e, err := store.Create(ctx, actor, n)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		result.Created++
		result.IDs = append(result.IDs, e.ID)
	}
	return result, nil
}

// payloadToEntry validates one form payload.
func payloadToEntry(p EntryPayload) (entry.NewEntry, error) {
	switch {
	case strings.TrimSpace(p.Date) == "":
		return entry.NewEntry{}, fmt.Errorf("%w: date", ErrMissingField)
	case strings.TrimSpace(p.Type) == "":
		return entry.NewEntry{}, fmt.Errorf("%w: type", ErrMissingField)
	case strings.TrimSpace(p.Description) == "":
		return entry.NewEntry{}, fmt.Errorf("%w: description", ErrMissingField)
	case strings.TrimSpace(string(p.Amount)) == "":
		return entry.NewEntry{}, fmt.Errorf("%w: amount", ErrMissingField)
	}

	amount, err := ParseAmount(string(p.Amount))
	if err != nil {
		return entry.NewEntry{}, err
	}

	date, err := ParseDateText(p.Date)
	if err != nil {
		return entry.NewEntry{}, err
	}

	n := entry.NewEntry{
		Date:        date,
		Kind:        entry.Kind(strings.ToLower(strings.TrimSpace(p.Type))),
		Description: strings.TrimSpace(p.Description),
		Amount:      amount,
	}
	if err := n.Validate(); err != nil {
		return entry.NewEntry{}, err
	}
	return n, nil
}
