package bot

import "context"

// MessageChunkLimit is the Bot API's per-message size cap.
const MessageChunkLimit = 4096

// SendChunks splits text into consecutive slices of at most limit runes and
// passes each to emit, strictly in order, waiting for each send before
// issuing the next. Empty text emits nothing. An emit failure stops the
// sequence and propagates; there is no retry.
func SendChunks(ctx context.Context, text string, limit int, emit func(context.Context, string) error) error {
	if limit <= 0 {
		limit = MessageChunkLimit
	}
	runes := []rune(text)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		if err := emit(ctx, string(runes[start:end])); err != nil {
			return err
		}
	}
	return nil
}
