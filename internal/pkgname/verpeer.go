package pkgname

import (
	"strings"

	"github.com/pkg/errors"
)

// VerPeer is a version plus an opaque `(peer1)(peer2)...` suffix as found in
// pnpm-lock.yaml dependency keys, e.g.
// `1.21.3(@types/react@17.0.49)(react-dom@17.0.2)(react@17.0.2)`.
//
// The peer part is carried as a plain string and never restructured (§3
// PkgVerPeer: "suffix treated as a string, not restructured"), grounded on
// `pkg_ver_peer.rs` in the original source.
type VerPeer struct {
	Version Version
	Peer    string // includes the parentheses, e.g. "(react@17.0.2)"; empty if none
}

// ParseVerPeer parses the `{version}{peer}` syntax.
func ParseVerPeer(input string) (VerPeer, error) {
	if !strings.HasSuffix(input, ")") {
		if strings.ContainsAny(input, "()") {
			return VerPeer{}, errors.Errorf("mismatched parenthesis in %q", input)
		}
		v, err := ParseVersion(input)
		if err != nil {
			return VerPeer{}, err
		}
		return VerPeer{Version: v}, nil
	}

	openIdx := strings.IndexByte(input, '(')
	if openIdx < 0 {
		return VerPeer{}, errors.Errorf("mismatched parenthesis in %q", input)
	}
	v, err := ParseVersion(input[:openIdx])
	if err != nil {
		return VerPeer{}, err
	}
	return VerPeer{Version: v, Peer: input[openIdx:]}, nil
}

// String formats back to `{version}{peer}`.
func (p VerPeer) String() string {
	return p.Version.String() + p.Peer
}
