package telegram

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minervabot/minerva/internal/knowledge"
)

// Responder turns one inbound user message into user-facing reply text.
type Responder interface {
	HandleMessage(ctx context.Context, userID, text string) string
}

const longPollTimeout = 50 * time.Second

// Poller drives the bot: it long-polls for updates and answers each message.
// Replies for different users run in parallel; the responder's own per-user
// serialization keeps a single user's conversation ordered.
type Poller struct {
	client    *Client
	responder Responder
	interval  time.Duration
}

func NewPoller(client *Client, responder Responder, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{client: client, responder: responder, interval: interval}
}

// Run polls until the context is canceled. Poll errors are logged and retried
// after the poll interval; they never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := p.client.GetUpdates(ctx, offset, longPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("telegram poll failed: %v", err)
			if !sleepCtx(ctx, p.interval) {
				return ctx.Err()
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			msg := u.Message
			if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
				continue
			}
			inflight.Add(1)
			go func(msg *Message) {
				defer inflight.Done()
				p.answer(ctx, msg)
			}(msg)
		}
	}
}

func (p *Poller) answer(ctx context.Context, msg *Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	text := strings.TrimSpace(msg.Text)

	var reply string
	switch command(text) {
	case "start":
		reply = startReply(msg.From.FirstName)
	case "help":
		reply = helpReply()
	default:
		reply = p.responder.HandleMessage(ctx, userID, text)
	}

	if err := p.client.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		log.Printf("telegram send to chat %d failed: %v", msg.Chat.ID, err)
	}
}

// command extracts a bot command name from "/name" or "/name@BotName".
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text)[0][1:]
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

func startReply(firstName string) string {
	greeting := "Hello"
	if strings.TrimSpace(firstName) != "" {
		greeting = "Hello " + strings.TrimSpace(firstName)
	}
	return greeting + "! I'm the Master's Program AI Assistant.\n\n" +
		"Ask me about courses, assignments, deadlines, or exams. " +
		"You'll be asked to log in with your university email the first time.\n\n" +
		"Type /help to see what I can do."
}

func helpReply() string {
	var b strings.Builder
	b.WriteString("I can answer questions about the Master's Program courses:\n\n")
	for _, c := range knowledge.All() {
		b.WriteString(c.Code)
		b.WriteString(" - ")
		b.WriteString(c.Name)
		b.WriteString("\n")
	}
	b.WriteString("\nAsk about content, assignments, deadlines, or exams. ")
	b.WriteString("You can ask several things at once and I'll answer each part.")
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
