package lineup

import (
	"strings"
	"unicode"
)

// Position is a lineup slot
type Position string

const (
	PointGuard    Position = "PG"
	ShootingGuard Position = "SG"
	Guard         Position = "G"
	SmallForward  Position = "SF"
	PowerForward  Position = "PF"
	Center        Position = "C"
)

// Positions lists every slot in display order
var Positions = []Position{PointGuard, ShootingGuard, Guard, SmallForward, PowerForward, Center}

var positionAliases = map[string][]Position{
	"PG":      {PointGuard},
	"SG":      {ShootingGuard},
	"G":       {Guard},
	"GUARD":   {Guard},
	"SF":      {SmallForward},
	"PF":      {PowerForward},
	"F":       {SmallForward, PowerForward},
	"FWD":     {SmallForward, PowerForward},
	"FORWARD": {SmallForward, PowerForward},
	"C":       {Center},
	"CENTER":  {Center},
}

func ordered(set map[Position]bool) []string {
	out := make([]string, 0, len(set))
	for _, p := range Positions {
		if set[p] {
			out = append(out, string(p))
		}
	}
	return out
}

// NormalizePositions keeps the known positions in raw, deduplicated and in
// display order. Unknown values are dropped.
func NormalizePositions(raw []string) []string {
	set := make(map[Position]bool, len(raw))
	for _, r := range raw {
		p := Position(strings.ToUpper(strings.TrimSpace(r)))
		for _, known := range Positions {
			if p == known {
				set[p] = true
			}
		}
	}
	return ordered(set)
}

// InferPositions maps a listed position such as "Guard-Forward" or "F-C" to
// lineup slots.
func InferPositions(listed string) []string {
	tokens := strings.FieldsFunc(strings.ToUpper(listed), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	set := make(map[Position]bool)
	for _, tok := range tokens {
		for _, p := range positionAliases[tok] {
			set[p] = true
		}
	}
	return ordered(set)
}

// ResolvePositions prefers custom positions and falls back to inference
func ResolvePositions(custom []string, listed string) []string {
	if normalized := NormalizePositions(custom); len(normalized) > 0 {
		return normalized
	}
	return InferPositions(listed)
}
