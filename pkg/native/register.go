package native

import "github.com/kvothe-dev/jalopy/pkg/rt"

// Install registers every native method this catalog provides onto reg.
// Called once at boot, after the Context and its NativeRegistry exist but
// before the entry-point class is loaded (internal/boot's composition
// order).
func Install(reg *rt.NativeRegistry) {
	RegisterSystem(reg)
	RegisterBoxing(reg)
	RegisterHashMap(reg)
}
