package makibishi

import (
	"errors"
	"fmt"
)

var ErrDestroyed = errors.New("emitter destroyed")

// ConfigurationError reports a missing or mismatched shader or material
// binding. The emitter refuses to run until the configuration is fixed.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("config %s=%q: %s", e.Field, e.Value, e.Reason)
}
