package pkgname

// VirtualStoreName computes pnpm's deterministic virtual-store directory name
// for a resolved package: `@{scope}+{bare}@{version}{peer}`, with the
// `@scope/bare` separator rewritten to `@scope+bare`. Both pacquet and pnpm must agree on this
// function byte-for-byte (§3 Virtual-store name invariant); it must never
// contain a `/` (§8 invariants).
func VirtualStoreName(name Name, verPeer VerPeer) string {
	if name.Scope == "" {
		return name.Bare + "@" + verPeer.String()
	}
	return "@" + name.Scope + "+" + name.Bare + "@" + verPeer.String()
}
