package processor

import (
	"errors"
	"fmt"

	"github.com/nguyentantai21042004/voice-merge/internal/retry"
	"github.com/nguyentantai21042004/voice-merge/internal/session"
)

var (
	// ErrNoFiles is returned when a batch is requested with an empty queue.
	ErrNoFiles = errors.New("no files queued")
	// ErrEmptyDocument is returned when a summary is requested for an empty document.
	ErrEmptyDocument = session.ErrEmptyDocument
)

// Document layout.
const (
	headerFormat = "--- DOSYA: %s ---\n"
	placeholder  = "İşleniyor...\n\n"
)

// User-facing messages shown in the session error slot.
const (
	MsgBatchQuota     = "API kullanım kotası aşıldı. Lütfen birkaç dakika bekleyip tekrar deneyin (Ücretsiz plan sınırları)."
	MsgBatchGeneric   = "Bir hata oluştu. Lütfen tekrar deneyin."
	MsgSummaryQuota   = "Kotanız doldu, özetleme için biraz bekleyin."
	MsgSummaryGeneric = "Özetleme sırasında bir hata oluştu."
)

// Header returns the section header written before each file's transcript.
func Header(name string) string {
	return fmt.Sprintf(headerFormat, name)
}

func batchMessage(err error) string {
	if retry.IsRateLimited(err) {
		return MsgBatchQuota
	}
	return MsgBatchGeneric
}

func summaryMessage(err error) string {
	if retry.IsRateLimited(err) {
		return MsgSummaryQuota
	}
	return MsgSummaryGeneric
}
