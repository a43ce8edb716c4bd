package dialogue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minervabot/minerva/internal/auth"
	"github.com/minervabot/minerva/internal/nlp"
	"github.com/minervabot/minerva/internal/observability"
	"github.com/minervabot/minerva/internal/policy"
)

// Brain answers one prompt. Implementations wrap the model backend with
// timeout, retry, and circuit breaking.
type Brain interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

const (
	genericErrorReply = "Sorry, I ran into a problem handling that. Please try again."
	linkFailureReply  = "You need to log in first, but I couldn't create a login link right now. Please try again shortly."
	authRequiredReply = "Your login has expired. Please authenticate again to continue."

	// Messages classified below this confidence are treated as unknown and
	// answered without intent-specific framing.
	lowConfidence = 0.2

	promptContextTurns = 6
)

// Orchestrator composes the gate, stores, NLP, and model client into the
// per-message pipeline. Messages from different users run in parallel;
// messages from the same user are serialized behind a per-user lock held from
// the context read to the context append.
type Orchestrator struct {
	gate        *auth.Gate
	contexts    ContextStore
	brain       Brain
	metrics     *observability.Metrics
	concurrency int
	ceiling     time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

func NewOrchestrator(gate *auth.Gate, contexts ContextStore, brain Brain, metrics *observability.Metrics, concurrency int, ceiling time.Duration) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 5
	}
	if ceiling <= 0 {
		ceiling = 45 * time.Second
	}
	return &Orchestrator{
		gate:        gate,
		contexts:    contexts,
		brain:       brain,
		metrics:     metrics,
		concurrency: concurrency,
		ceiling:     ceiling,
		locks:       make(map[string]*sync.Mutex),
		now:         time.Now,
	}
}

// HandleMessage runs the full pipeline for one inbound message and always
// returns user-facing text; no failure crosses this boundary as an error.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, text string) string {
	started := o.now()
	defer func() {
		if o.metrics != nil {
			o.metrics.ObserveHandleLatency(time.Since(started))
		}
	}()

	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	state, err := o.gate.Check(ctx, userID)
	if err != nil {
		log.Printf("auth check failed for %s: %v", userID, err)
		return genericErrorReply
	}
	if state != auth.StateAuthenticated {
		// Fail fast: nothing is appended to context and nothing reaches the
		// model backend for an unauthenticated user.
		return o.loginPrompt(ctx, userID)
	}

	window, err := o.contexts.Window(ctx, userID)
	if err != nil {
		log.Printf("context window load failed for %s: %v", userID, err)
		window = nil
	}

	intent, confidence := nlp.Classify(text, recentTexts(window, 4))
	if confidence < lowConfidence && intent != nlp.IntentMultiPart {
		intent = nlp.IntentUnknown
	}
	entities := nlp.Extract(text)
	if o.metrics != nil {
		o.metrics.MessagesTotal.WithLabelValues(string(intent)).Inc()
	}

	messageID := uuid.NewString()
	subs := nlp.Decompose(messageID, text)
	answers := o.fanOut(ctx, intent, window, subs)

	// A session that expired mid-fan-out keeps its in-flight work but loses
	// the reply: nothing is appended and the user is asked to re-auth.
	state, err = o.gate.Check(ctx, userID)
	if err != nil || state != auth.StateAuthenticated {
		if o.metrics != nil {
			o.metrics.AuthEvents.WithLabelValues("expired_midflight").Inc()
		}
		return authRequiredReply + "\n\n" + o.loginPrompt(ctx, userID)
	}

	agg := Aggregate(subs, answers)
	if agg.Degraded && o.metrics != nil {
		o.metrics.DegradedResponses.Inc()
	}

	now := o.now()
	userTurn := Turn{
		ID:        messageID,
		Role:      RoleUser,
		Text:      strings.TrimSpace(text),
		Timestamp: now,
		Intent:    intent,
		Entities:  entities,
	}
	replyTurn := Turn{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      agg.Text,
		Timestamp: now,
	}
	if err := o.contexts.Append(ctx, userID, userTurn, replyTurn); err != nil {
		log.Printf("context append failed for %s: %v", userID, err)
	}

	return agg.Text
}

// fanOut dispatches sub-questions concurrently, bounded by the worker budget
// and by the wall-clock ceiling. Sub-questions still pending at the ceiling
// come back as failed answers rather than blocking the reply.
func (o *Orchestrator) fanOut(ctx context.Context, intent nlp.Intent, window []Turn, subs []nlp.SubQuestion) []Answer {
	fanCtx, cancel := context.WithTimeout(ctx, o.ceiling)
	defer cancel()

	sem := make(chan struct{}, o.concurrency)
	answers := make([]Answer, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		if o.metrics != nil {
			o.metrics.SubQuestionsTotal.Inc()
		}
		wg.Add(1)
		go func(i int, sub nlp.SubQuestion) {
			defer wg.Done()
			answers[i] = Answer{Ordinal: sub.Ordinal}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-fanCtx.Done():
				return
			}

			started := time.Now()
			text, err := o.brain.Ask(fanCtx, buildPrompt(intent, window, sub))
			answers[i].Latency = time.Since(started)
			if err != nil {
				log.Printf("sub-question %d failed: %v", sub.Ordinal, err)
				return
			}
			answers[i].Text = text
			answers[i].OK = true
		}(i, sub)
	}
	wg.Wait()
	return answers
}

func (o *Orchestrator) loginPrompt(ctx context.Context, userID string) string {
	if o.metrics != nil {
		o.metrics.AuthEvents.WithLabelValues("rejected").Inc()
	}
	url, err := o.gate.IssueLink(ctx, userID)
	if err != nil {
		log.Printf("issue link failed for %s: %v", userID, err)
		return linkFailureReply
	}
	if o.metrics != nil {
		o.metrics.AuthEvents.WithLabelValues("link_issued").Inc()
	}
	return "Welcome to the Master's Program AI Assistant!\n\n" +
		"To use this bot, you need to authenticate with your university email address.\n\n" +
		"Please open this link to log in: " + url
}

func (o *Orchestrator) userLock(userID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[userID] = l
	}
	return l
}

// buildPrompt frames one sub-question with intent guidance and the recent
// conversation. The switch is exhaustive over the closed intent set.
func buildPrompt(intent nlp.Intent, window []Turn, sub nlp.SubQuestion) string {
	var b strings.Builder
	switch intent {
	case nlp.IntentCourseInfo:
		b.WriteString("The student is asking about course details.\n")
	case nlp.IntentAssignmentQuery:
		b.WriteString("The student is asking about assignments, deadlines, or grading.\n")
	case nlp.IntentMultiPart:
		b.WriteString("This is one part of a multi-part question; answer only this part.\n")
	case nlp.IntentSmallTalk:
		b.WriteString("Reply briefly and warmly.\n")
	case nlp.IntentUnknown:
		b.WriteString("Answer as helpfully as you can within the academic context.\n")
	}

	if recent := lastTurns(window, promptContextTurns); len(recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, t := range recent {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(sub.Text)

	// Contact and payment details stay inside the service; the backend only
	// ever sees masked placeholders.
	redacted, _ := policy.RedactPII(b.String())
	return redacted
}

func lastTurns(window []Turn, n int) []Turn {
	if len(window) <= n {
		return window
	}
	return window[len(window)-n:]
}

func recentTexts(window []Turn, n int) []string {
	turns := lastTurns(window, n)
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Text)
	}
	return out
}
