package installer

import (
	"fmt"
	"strings"
)

// Kind is the package type.
type Kind string

const (
	// KindAPM is a standard module installed by apd.
	KindAPM Kind = "APM"
	// KindKPM is a kernel patch module copied into the KPM root.
	KindKPM Kind = "KPM"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindAPM, KindKPM}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown module kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is supported.
func (k Kind) Valid() bool {
	return k == KindAPM || k == KindKPM
}

func (k Kind) String() string { return string(k) }

// State is a step of an install.
type State int

const (
	StateFetching State = iota
	StateStaging
	StateValidating
	StateInstalling
	StateFinalizing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateStaging:
		return "staging"
	case StateValidating:
		return "validating"
	case StateInstalling:
		return "installing"
	case StateFinalizing:
		return "finalizing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
