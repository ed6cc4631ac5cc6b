package model

import (
	"fmt"
	"strings"
)

// Side selects which asset's amount is authoritative in a deposit.
type Side uint8

const (
	SideBase Side = iota
	SideQuote
)

func (s Side) String() string {
	switch s {
	case SideBase:
		return "base"
	case SideQuote:
		return "quote"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideBase {
		return SideQuote
	}
	return SideBase
}

// ParseSide accepts "base", "quote" and the legacy "pc" alias.
func ParseSide(input string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "base":
		return SideBase, nil
	case "quote", "pc":
		return SideQuote, nil
	default:
		return 0, fmt.Errorf("unknown side: %q", input)
	}
}

// Direction is the asset flow of a swap.
type Direction uint8

const (
	BaseToQuote Direction = iota
	QuoteToBase
)

func (d Direction) String() string {
	switch d {
	case BaseToQuote:
		return "base_to_quote"
	case QuoteToBase:
		return "quote_to_base"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// InputSide is the side whose vault receives the swap input.
func (d Direction) InputSide() Side {
	if d == QuoteToBase {
		return SideQuote
	}
	return SideBase
}

// ParseDirection accepts the long names plus "base-in"/"quote-in" shorthands.
func ParseDirection(input string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "base_to_quote", "base-in", "base_in":
		return BaseToQuote, nil
	case "quote_to_base", "quote-in", "quote_in", "pc-in":
		return QuoteToBase, nil
	default:
		return 0, fmt.Errorf("unknown swap direction: %q", input)
	}
}
