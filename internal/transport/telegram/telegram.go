// Package telegram implements the notifier boundary on top of the
// Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "hookrelay/pkg/logx"
)

// ErrNoToken is returned by Send when the adapter runs without a bot token.
var ErrNoToken = errors.New("telegram token not configured")

const defaultSendTimeout = 10 * time.Second

// Config configures the adapter.
type Config struct {
	Token string

	// SendTimeout bounds one Bot API call (default 10s). Enforced through
	// the bot's HTTP client since the Bot API has no context plumbing.
	SendTimeout time.Duration
}

// Adapter sends messages via telebot. It never polls for updates.
//
// An empty token yields a disabled adapter: the process runs, sends fail
// with ErrNoToken, and the pipeline records them as non-delivered.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	a := &Adapter{cfg: cfg, log: log}
	if strings.TrimSpace(cfg.Token) == "" {
		log.Warn("telegram token empty; delivery disabled")
		return a, nil
	}

	b, err := tele.NewBot(tele.Settings{
		Token: cfg.Token,
		// Offline skips the getMe probe so a network blip at boot doesn't
		// keep the relay from starting; a bad token surfaces on first send.
		Offline: true,
		Client:  &http.Client{Timeout: cfg.SendTimeout},
	})
	if err != nil {
		return nil, err
	}
	a.bot = b
	return a, nil
}

// Enabled reports whether sends can reach Telegram at all.
func (a *Adapter) Enabled() bool { return a.bot != nil }

// recipient passes the destination through to the Bot API verbatim
// (numeric chat id or "@channelname").
type recipient string

func (r recipient) Recipient() string { return string(r) }

// Send delivers text to destination with HTML parse mode and link
// previews disabled, splitting messages over Telegram's length limit.
func (a *Adapter) Send(ctx context.Context, destination, text string) error {
	if a.bot == nil {
		return ErrNoToken
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return errors.New("empty destination")
	}

	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	}

	for _, chunk := range splitText(text, textLimit) {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if _, err := a.bot.Send(recipient(destination), chunk, opts); err != nil {
			return err
		}
	}
	return nil
}

// textLimit stays under Telegram's 4096-char message cap with headroom
// for entity expansion.
const textLimit = 4000

// splitText splits long messages into chunks that are safe to send,
// preferring newline boundaries and avoiding cuts inside HTML tags.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		// Prefer a newline near the end of the window, but avoid tiny chunks.
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		// Don't cut inside a dangling HTML tag.
		if end < len(rs) {
			lastOpen, lastClose := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					lastOpen = i
				case '>':
					lastClose = i
				}
			}
			if lastOpen > lastClose && lastOpen > start+1 {
				end = lastOpen
			}
		}

		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		out = append(out, chunk)

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
