package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// groupMessageTemplates maps a notification type to the message shown when a
// burst of same-kind events has been merged into one row. The {count}
// placeholder is substituted with the running group count by the store's
// merge statement, so a merge stays a single write.
var groupMessageTemplates = map[NotificationType]string{
	NotifFollow:  "{count} people followed you",
	NotifLike:    "{count} people liked your content",
	NotifComment: "{count} new comments on your posts",
	NotifReview:  "{count} new reviews on destinations you bookmarked",
}

// GroupMessageTemplate returns the merge template for the given type, falling
// back to a generic "{count} new <type> notifications" message.
func GroupMessageTemplate(t NotificationType) string {
	if tmpl, ok := groupMessageTemplates[t]; ok {
		return tmpl
	}
	return fmt.Sprintf("{count} new %s notifications", t)
}

// RenderGroupMessage evaluates a merge template for a concrete count.
func RenderGroupMessage(t NotificationType, count int) string {
	return strings.ReplaceAll(GroupMessageTemplate(t), "{count}", strconv.Itoa(count))
}
