package gpu

import "fmt"

// MarshalText and UnmarshalText let config files name kinds and shadow
// modes by their String form.

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{KindCompute, KindTexture} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown backend kind %q", b)
}

func (m ShadowMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ShadowMode) UnmarshalText(b []byte) error {
	for _, c := range []ShadowMode{ShadowsOff, ShadowsOn, ShadowsTwoSided, ShadowsOnly} {
		if c.String() == string(b) {
			*m = c
			return nil
		}
	}
	return fmt.Errorf("unknown shadow mode %q", b)
}
