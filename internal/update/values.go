package update

import (
	"fmt"
	"strconv"

	"github.com/fieldrobotics/scenegraph/internal/dsg"
)

// Key identifies one optimizer variable: a layer key character plus
// the variable index. A ranked node's variable index is its node id;
// agent trajectory nodes use the per-robot key character.
type Key struct {
	Prefix byte
	Index  uint64
}

func (k Key) String() string { return fmt.Sprintf("%c%d", k.Prefix, k.Index) }

// ParseKey parses the printable form of a key: a single key character
// followed by a decimal index, e.g. "p42".
func ParseKey(s string) (Key, error) {
	if len(s) < 2 {
		return Key{}, fmt.Errorf("key too short: %q", s)
	}
	idx, err := strconv.ParseUint(s[1:], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("bad key index in %q: %w", s, err)
	}
	return Key{Prefix: s[0], Index: idx}, nil
}

// Pose is one solved 3-D estimate from the optimizer.
type Pose struct {
	Position dsg.Vec3
	Rotation dsg.Quat
}

// Values is a read-only solved-variable set: the optimizer's mapping
// from variable key to estimate. An absent key means the variable has
// not been solved yet, which is expected, not an error.
type Values map[Key]Pose

// At returns the solved pose for k.
func (v Values) At(k Key) (Pose, bool) {
	p, ok := v[k]
	return p, ok
}

// Has reports whether k has been solved.
func (v Values) Has(k Key) bool {
	_, ok := v[k]
	return ok
}
