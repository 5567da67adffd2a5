package clip

import "fmt"

// Kind identifies which strategy resolves a clip.
// The zero value is KindUnknown and is always rejected by the engine.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindScrubbable
	KindTriggerable
	KindSequential
)

// Kinds lists the valid kinds in dispatch order.
var Kinds = []Kind{KindScrubbable, KindTriggerable, KindSequential}

func (k Kind) String() string {
	switch k {
	case KindScrubbable:
		return "scrubbable"
	case KindTriggerable:
		return "triggerable"
	case KindSequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the three dispatchable kinds.
func (k Kind) Valid() bool {
	return k == KindScrubbable || k == KindTriggerable || k == KindSequential
}

// ParseKind converts a lowercase kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "scrubbable":
		return KindScrubbable, nil
	case "triggerable":
		return KindTriggerable, nil
	case "sequential":
		return KindSequential, nil
	default:
		return KindUnknown, fmt.Errorf("unknown clip kind %q", s)
	}
}
