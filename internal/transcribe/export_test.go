package transcribe

// Internal constructors and functions exposed for black-box testing.

// NewWithClient constructs a transcriber around a mock client.
func NewWithClient(client audioTranscriber) *OpenAITranscriber {
	return newWithClient(client)
}

// ClassifyError exposes classifyError.
func ClassifyError(err error) error {
	return classifyError(err)
}
