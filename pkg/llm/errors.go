package llm

import "errors"

// ErrDisabled is returned by Chat when called on a Client whose IsEnabled
// is false. Callers should check IsEnabled first; this exists so a caller
// that forgets to still fails loudly instead of silently proceeding.
var ErrDisabled = errors.New("llm: capability disabled")
