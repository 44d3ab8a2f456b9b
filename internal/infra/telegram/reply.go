package telegram

import (
	"strings"
	"unicode/utf16"
)

// maxMessageLength is Telegram's message limit in UTF-16 code units.
const maxMessageLength = 4096

const truncatedMark = "…"

func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// truncateText cuts s to at most limit code units, marking the cut.
func truncateText(s string, limit int) string {
	if textLength(s) <= limit {
		return s
	}
	limit -= textLength(truncatedMark)
	n := 0
	for i, r := range s {
		n += utf16.RuneLen(r)
		if n > limit {
			return s[:i] + truncatedMark
		}
	}
	return s
}

// sendBlocks sends blocks separated by newlines, starting a new message
// whenever the next block would not fit. An oversized block is truncated.
func sendBlocks(c Commander, blocks []string) error {
	var msg strings.Builder
	size := 0
	flush := func() error {
		if msg.Len() == 0 {
			return nil
		}
		err := c.Send(strings.TrimSuffix(msg.String(), "\n"))
		msg.Reset()
		size = 0
		return err
	}

	for _, block := range blocks {
		block = truncateText(block, maxMessageLength-1)
		n := textLength(block) + 1
		if size+n > maxMessageLength {
			if err := flush(); err != nil {
				return err
			}
		}
		msg.WriteString(block)
		msg.WriteString("\n")
		size += n
	}
	return flush()
}
