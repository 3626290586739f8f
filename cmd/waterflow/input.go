package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Simplici0/waterflow/internal/hydraulics"
)

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: no value for %q", hydraulics.ErrInvalidInput, strings.TrimSpace(question))
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *prompter) askFloat(question string) (float64, error) {
	raw, err := p.ask(question)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", hydraulics.ErrInvalidInput, raw)
	}
	return value, nil
}

func (p *prompter) askInt(question string) (int, error) {
	raw, err := p.ask(question)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", hydraulics.ErrInvalidInput, raw)
	}
	return value, nil
}

// readInput prompts for the five installation values in order and stops at
// the first entry that does not parse.
func readInput(r io.Reader, w io.Writer) (hydraulics.Input, error) {
	p := &prompter{in: bufio.NewScanner(r), out: w}

	var in hydraulics.Input
	var err error
	if in.TowerHeight, err = p.askFloat("Height of water tower (meters): "); err != nil {
		return hydraulics.Input{}, err
	}
	if in.TankHeight, err = p.askFloat("Height of water tank walls (meters): "); err != nil {
		return hydraulics.Input{}, err
	}
	if in.SupplyPipeLength, err = p.askFloat("Length of supply pipe from tank to lot (meters): "); err != nil {
		return hydraulics.Input{}, err
	}
	if in.FittingCount, err = p.askInt("Number of 90° angles in supply pipe: "); err != nil {
		return hydraulics.Input{}, err
	}
	if in.HousePipeLength, err = p.askFloat("Length of pipe from supply to house (meters): "); err != nil {
		return hydraulics.Input{}, err
	}
	return in, nil
}
