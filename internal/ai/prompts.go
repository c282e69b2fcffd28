package ai

const transcribePrompt = "Lütfen bu ses kaydını tam ve doğru bir şekilde metne çevir. Konuşmacı değişimlerini fark edersen satır başı yap. Sadece konuşulanları yaz, ekstra yorum ekleme."

const summaryPrompt = "Aşağıdaki metni profesyonel bir dille, ana noktaları vurgulayarak özetle:"

// Returned verbatim when a model answers without any text.
const (
	TranscriptionFallback = "Transcription failed."
	SummaryFallback       = "Summary failed."
)
