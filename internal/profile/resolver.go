package profile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Resolver produces the run's input selection.
type Resolver interface {
	Resolve(ctx context.Context) (Selection, error)
}

// FlagResolver resolves from configured plate and card name without
// prompting; it is the only resolver unattended runs may use.
type FlagResolver struct {
	Store    *Store
	Plate    string
	CardName string
}

// Resolve picks the configured vehicle and card. A single-entry profile file
// resolves without the corresponding flag.
func (r *FlagResolver) Resolve(ctx context.Context) (Selection, error) {
	sel := Selection{Address: r.Store.Address}

	switch {
	case r.Plate != "":
		v, err := r.Store.VehicleByPlate(r.Plate)
		if err != nil {
			return Selection{}, err
		}
		sel.Vehicle = v
	case len(r.Store.Vehicles) == 1:
		sel.Vehicle = r.Store.Vehicles[0]
	default:
		return Selection{}, fmt.Errorf("multiple vehicles configured; --plate is required")
	}

	switch {
	case r.CardName != "":
		c, err := r.Store.CardByName(r.CardName)
		if err != nil {
			return Selection{}, err
		}
		sel.Card = c
	case len(r.Store.Cards) == 1:
		sel.Card = r.Store.Cards[0]
	default:
		return Selection{}, fmt.Errorf("multiple payment cards configured; --card is required")
	}

	return sel, nil
}

// PromptResolver asks the operator to pick from numbered lists, the way the
// original interactive flow did.
type PromptResolver struct {
	Store *Store
	In    io.Reader
	Out   io.Writer
}

// Resolve prompts for a vehicle and a card.
func (r *PromptResolver) Resolve(ctx context.Context) (Selection, error) {
	reader := bufio.NewReader(r.In)

	fmt.Fprintln(r.Out, "Which vehicle would you like to get a parking permit for?")
	for i, v := range r.Store.Vehicles {
		fmt.Fprintf(r.Out, "%d. %s - %s\n", i+1, v.Name, v.Plate)
	}
	vi, err := r.readChoice(ctx, reader, len(r.Store.Vehicles))
	if err != nil {
		return Selection{}, err
	}

	fmt.Fprintln(r.Out, "Which card would you like to use?")
	for i, c := range r.Store.Cards {
		fmt.Fprintf(r.Out, "%d. %s\n", i+1, c.Name)
	}
	ci, err := r.readChoice(ctx, reader, len(r.Store.Cards))
	if err != nil {
		return Selection{}, err
	}

	return Selection{
		Vehicle: r.Store.Vehicles[vi],
		Card:    r.Store.Cards[ci],
		Address: r.Store.Address,
	}, nil
}

// readChoice reads a 1-based selection, re-prompting on invalid input.
func (r *PromptResolver) readChoice(ctx context.Context, reader *bufio.Reader, max int) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		fmt.Fprint(r.Out, "Enter the number: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("cannot read selection: %w", err)
		}

		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > max {
			fmt.Fprintf(r.Out, "Please enter a number between 1 and %d\n", max)
			continue
		}
		return n - 1, nil
	}
}
