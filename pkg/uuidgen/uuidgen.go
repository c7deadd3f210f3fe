// Package uuidgen generates UUIDs in batches.
package uuidgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/thecyberx/cyberx/pkg/defaults"
)

// Version selects the UUID kind.
type Version string

const (
	V4  Version = "v4"
	V1  Version = "v1"
	V7  Version = "v7"
	Nil Version = "nil"
	Max Version = "max"
)

// Versions in display order.
var Versions = []Version{V4, V1, V7, Nil, Max}

// Options controls Generate.
type Options struct {
	Version   Version
	Count     int
	Uppercase bool
	NoDashes  bool
}

// Generated is one UUID with the version that produced it.
type Generated struct {
	Value   string  `json:"value"`
	Version Version `json:"version"`
}

// ClampCount limits n to 1..defaults.UUIDMaxCount.
func ClampCount(n int) int {
	return max(1, min(defaults.UUIDMaxCount, n))
}

// Generate returns Count UUIDs (clamped to 1..100). An empty Version is v4.
func Generate(opts Options) ([]Generated, error) {
	version := opts.Version
	if version == "" {
		version = V4
	}
	count := ClampCount(opts.Count)
	out := make([]Generated, 0, count)
	for i := 0; i < count; i++ {
		id, err := newUUID(version)
		if err != nil {
			return nil, err
		}
		out = append(out, Generated{Value: render(id, opts), Version: version})
	}
	return out, nil
}

func newUUID(v Version) (uuid.UUID, error) {
	switch Version(strings.ToLower(string(v))) {
	case V4:
		return uuid.NewRandom()
	case V1:
		return uuid.NewUUID()
	case V7:
		return uuid.NewV7()
	case Nil:
		return uuid.Nil, nil
	case Max:
		return uuid.Max, nil
	}
	return uuid.Nil, fmt.Errorf("unknown UUID version %q", v)
}

func render(id uuid.UUID, opts Options) string {
	s := id.String()
	if opts.NoDashes {
		s = strings.ReplaceAll(s, "-", "")
	}
	if opts.Uppercase {
		s = strings.ToUpper(s)
	}
	return s
}
