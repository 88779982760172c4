package errors

import (
	"fmt"
	"time"

	"github.com/go-lark/lark"
	"moff.io/walletauth/pkg/log"
)

type larkReporter struct {
	bot   *lark.Bot
	title string
	delay *rateLimiter
}

// NewLarkReporter posts reported errors to a lark webhook, at most once per silent period per call site.
func NewLarkReporter(webhook, title string, silent time.Duration) {
	if webhook == "" {
		log.Warn("empty lark webhook found, skipping lark reporter initialization.")
		return
	}
	if title == "" {
		title = "walletauth error"
	}
	AddReporter(&larkReporter{
		bot:   lark.NewNotificationBot(webhook),
		title: title,
		delay: newRateLimiter(silent),
	})
	log.Info("Lark error reporter initialized.")
}

func (r *larkReporter) Report(err error) {
	if err == nil {
		return
	}
	stacks := callers().fullStack()
	limited, stats := r.delay.StackBasedRateLimited(stacks[2])
	if limited {
		return
	}
	pb := lark.NewPostBuilder()
	pb.Title(r.title)
	pb.TextTag(fmt.Sprintf("Last Report: %v", formatReportTime(stats.lastReportTime)), 1, true)
	pb.TextTag(fmt.Sprintf("\nError Count Since Last Report: %v", stats.occurCountSinceLastReport), 1, true)
	pb.TextTag(fmt.Sprintf("\nMessage: %v", err.Error()), 1, true)
	pb.TextTag("\nStacks:", 1, true)
	for _, s := range stacks {
		pb.TextTag(fmt.Sprintf("\n    %s", s), 1, true)
	}
	if _, err := r.bot.PostNotificationV2(lark.OutcomingMessage{
		MsgType: "post",
		Content: lark.MessageContent{
			Post: pb.Render(),
		},
	}); err != nil {
		log.Errorf("post lark notification:%v", err)
	}
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format("2006.01.02 15:04")
}
