// Package notify delivers upload receipts to the uploader. The receipt is
// the only copy of the decryption key, so a failed delivery is reported to
// the caller and never retried silently.
package notify

import (
	"context"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/exchange"
)

// Notice is the content of one receipt message.
type Notice struct {
	FileName string
	Receipt  exchange.Receipt
}

// Notifier sends a Notice to an address. Failures wrap
// common.ErrorNotification.
type Notifier interface {
	Send(ctx context.Context, to string, n Notice) error
}
