package grouping

import (
	"strings"

	types "github.com/yungbote/burstreply-backend/internal/domain"
)

// RenderReply lists the ids of msgs under header, one per line, in the given order.
func RenderReply(header string, msgs []*types.Message) string {
	var b strings.Builder
	b.WriteString(header)
	for _, m := range msgs {
		b.WriteString("\n")
		b.WriteString(m.ID)
	}
	return b.String()
}
