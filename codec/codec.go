// Package codec centralizes snapshot payload encoding.
//
// Snapshots record the codec name in their header, so a database can switch
// its default codec and still load snapshots written with another one.
// Custom codecs become loadable once they are registered.
package codec

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used for newly written snapshots.
var Default Codec = GoJSON{}

// ErrDuplicateCodec is returned by Register for a name already in use.
var ErrDuplicateCodec = errors.New("codec already registered")

var registry = struct {
	sync.RWMutex
	codecs map[string]Codec
}{
	codecs: map[string]Codec{
		JSON{}.Name():   JSON{},
		GoJSON{}.Name(): GoJSON{},
	},
}

// Register makes c available to ByName. Names are case-sensitive and
// limited to 255 bytes, the size of the snapshot header field.
func Register(c Codec) error {
	name := c.Name()
	if name == "" || len(name) > 255 {
		return fmt.Errorf("codec: invalid name %q", name)
	}

	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.codecs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCodec, name)
	}
	registry.codecs[name] = c
	return nil
}

// ByName returns a registered codec by its stable name.
func ByName(name string) (Codec, bool) {
	registry.RLock()
	defer registry.RUnlock()
	c, ok := registry.codecs[name]
	return c, ok
}

// Names lists the registered codec names in sorted order.
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.codecs))
	for name := range registry.codecs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MustMarshal is a helper for tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
