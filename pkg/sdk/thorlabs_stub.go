//go:build !windows

package sdk

import (
	"fmt"
	"log/slog"
)

// The vendor DLLs only exist on Windows. Everywhere else the thorlabs
// backend is unavailable and callers should use the mock backend.
func newThorlabsSDK(cfg Config, logger *slog.Logger) (SDK, error) {
	return nil, fmt.Errorf("%w: thorlabs backend requires windows", ErrBackendUnavailable)
}
