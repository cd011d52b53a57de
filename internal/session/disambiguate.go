package session

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heritagepubs/pubsync/internal/model"
)

// Action is an operator decision for an ambiguous record.
type Action int

const (
	ActionSkip Action = iota
	ActionPick
	ActionCreate
)

// Choice carries the operator decision; Candidate indexes the ranked
// candidate list when Action is ActionPick.
type Choice struct {
	Action    Action
	Candidate int
}

// Disambiguator decides what to do with an ambiguous record. It abstracts
// the operator so the session never touches a terminal directly.
type Disambiguator interface {
	Choose(v model.Venue, candidates []model.Candidate) (Choice, error)
}

// AutoSkip is the non-interactive policy: always skip, logging the ranked
// candidates for later review.
type AutoSkip struct{}

func (AutoSkip) Choose(v model.Venue, candidates []model.Candidate) (Choice, error) {
	fields := []zap.Field{
		zap.String("name", v.Name),
		zap.String("address", v.Address),
		zap.Int("candidates", len(candidates)),
	}
	for i, c := range candidates {
		fields = append(fields, zap.String(
			fmt.Sprintf("candidate_%d", i+1),
			fmt.Sprintf("%s %s (%d)", c.Name, c.Address, c.Score),
		))
	}
	zap.L().Info("ambiguous record skipped", fields...)
	return Choice{Action: ActionSkip}, nil
}

// Console prompts the operator on a terminal, in the style of the import
// scripts this replaces.
type Console struct {
	In  io.Reader
	Out io.Writer

	// One scanner for the whole session. A per-call scanner would buffer
	// ahead of the line it returns and swallow the answers to every later
	// prompt when input is piped.
	scanner *bufio.Scanner
}

func (c *Console) Choose(v model.Venue, candidates []model.Candidate) (Choice, error) {
	fmt.Fprintf(c.Out, "\nUnmatched: %s @ %s\n", v.Name, v.Address)
	for i, cand := range candidates {
		fmt.Fprintf(c.Out, "  %d. %s %s  (%d)\n", i+1, cand.Name, cand.Address, cand.Score)
	}
	fmt.Fprintf(c.Out, "Choose 1-%d, [n]ew or [s]kip: ", len(candidates))

	if c.scanner == nil {
		c.scanner = bufio.NewScanner(c.In)
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Choice{}, eris.Wrap(err, "session: read choice")
		}
		// EOF on stdin: treat as skip.
		return Choice{Action: ActionSkip}, nil
	}

	resp := strings.ToLower(strings.TrimSpace(c.scanner.Text()))
	switch {
	case resp == "n":
		return Choice{Action: ActionCreate}, nil
	case resp == "s", resp == "":
		return Choice{Action: ActionSkip}, nil
	}

	if n, err := strconv.Atoi(resp); err == nil && n >= 1 && n <= len(candidates) {
		return Choice{Action: ActionPick, Candidate: n - 1}, nil
	}

	fmt.Fprintln(c.Out, "Unrecognized choice, skipping.")
	return Choice{Action: ActionSkip}, nil
}
