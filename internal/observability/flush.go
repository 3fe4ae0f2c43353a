package observability

import (
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/zap"
)

// FlushTelemetry flushes buffered log entries before process exit. Metrics are pull-based and
// need no flush. Sync errors from console file descriptors (EINVAL, ENOTTY) are ignored.
func FlushTelemetry(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	if err := logger.Sync(); err != nil && !isConsoleSyncError(err) {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}

func isConsoleSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
