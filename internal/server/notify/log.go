package notify

import (
	"context"
	"fmt"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
)

// LogNotifier records that a receipt would have been sent. Development only:
// the key itself is never logged, so files stored with it are unreadable.
type LogNotifier struct {
	log logging.Logger
}

// NewLogNotifier returns a Notifier that writes to log.
func NewLogNotifier(log logging.Logger) *LogNotifier {
	if log == nil {
		log = logging.Nop{}
	}
	return &LogNotifier{log: log.With("module", "notify")}
}

func (l *LogNotifier) Send(ctx context.Context, to string, n Notice) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorNotification, err)
	}
	l.log.Info(ctx, "receipt notice", "to", to, "file", n.FileName, "receipt", n.Receipt)
	return nil
}
