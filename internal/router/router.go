// Package router turns a classified utterance into answer text.
//
// The router keeps no state between requests. Collaborator failures are
// converted into spoken-friendly sentences instead of errors so the user
// always hears something.
package router

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"riya/internal/intent"
	"riya/internal/lookup"
)

type Result struct {
	Intent intent.Intent
	Answer string
}

// Automation runs OS-level commands. Failures come back as text.
type Automation interface {
	Run(ctx context.Context, text string) string
}

type Chatter interface {
	Chat(ctx context.Context, text string) (string, error)
}

type StockQuoter interface {
	FindTicker(ctx context.Context, company string) (string, error)
	Quote(ctx context.Context, symbol string) (string, error)
}

type CryptoQuoter interface {
	Price(ctx context.Context, coin string) (string, error)
}

type WeatherReporter interface {
	Current(ctx context.Context, city string) (string, error)
}

type NewsReader interface {
	Headlines(ctx context.Context, topic string) (string, error)
}

type Locator interface {
	City(ctx context.Context) (string, error)
}

// Lookups groups the real-time collaborators. Locator may be nil.
type Lookups struct {
	Stock   StockQuoter
	Crypto  CryptoQuoter
	Weather WeatherReporter
	News    NewsReader
	Locator Locator
}

type Config struct {
	DefaultCity  string // used when no city is named and geolocation fails
	DefaultTopic string // news topic when none is named
}

type Router struct {
	auto    Automation
	chat    Chatter
	lookups Lookups
	cfg     Config
	now     func() time.Time
}

func New(auto Automation, chat Chatter, lookups Lookups, cfg Config) *Router {
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = "Delhi"
	}
	if cfg.DefaultTopic == "" {
		cfg.DefaultTopic = "technology"
	}
	return &Router{auto: auto, chat: chat, lookups: lookups, cfg: cfg, now: time.Now}
}

// Route answers text for the given intent. Control utterances are handled
// by the session and yield an empty answer here.
func (r *Router) Route(ctx context.Context, in intent.Intent, text string) Result {
	var answer string

	switch in {
	case intent.DateTime:
		answer = r.dateTime(text)
	case intent.Automation:
		answer = r.auto.Run(ctx, text)
	case intent.RealtimeLookup:
		answer = r.realtime(ctx, text)
	case intent.Control:
		answer = ""
	default:
		answer = r.general(ctx, text)
	}

	log.Debug("Routed", "intent", in.String(), "chars", len(answer))
	return Result{Intent: in, Answer: answer}
}

const (
	dateLayout = "02 January 2006"
	timeLayout = "03:04:05 PM"
)

func (r *Router) dateTime(text string) string {
	now := r.now()
	day, date, clock := now.Format("Monday"), now.Format(dateLayout), now.Format(timeLayout)

	switch intent.DateTimeKindOf(text) {
	case intent.DateAndTime:
		return fmt.Sprintf("Today is %s, %s, and the current time is %s.", day, date, clock)
	case intent.DateOnly:
		return fmt.Sprintf("Today's date is %s.", date)
	case intent.DayOnly:
		return fmt.Sprintf("Today is %s.", day)
	default:
		return fmt.Sprintf("The current time is %s.", clock)
	}
}

func (r *Router) general(ctx context.Context, text string) string {
	answer, err := r.chat.Chat(ctx, text)
	if err != nil {
		log.Error("Chat failed", "err", err)
		return "Sorry, I couldn't reach my language service right now. Please try again in a moment."
	}
	return answer
}

// Sub-domains of a real-time query, in priority order.
type subdomain int

const (
	noSubdomain subdomain = iota
	stockQuery
	cryptoQuery
	weatherQuery
	newsQuery
)

// subdomainOf picks the lookup for text. Stock wins over crypto, crypto
// over weather, weather over news.
func subdomainOf(text string) subdomain {
	low := strings.ToLower(text)
	_, coin := lookup.CoinIn(low)

	switch {
	case intent.HasWordPrefix(low, "stock") || intent.HasWordPrefix(low, "shares") ||
		intent.HasWordPrefix(low, "share price"):
		return stockQuery
	case intent.HasWordPrefix(low, "price") && !coin && !intent.HasWordPrefix(low, "crypto"):
		return stockQuery
	case coin || intent.HasWordPrefix(low, "crypto"):
		return cryptoQuery
	case intent.HasWordPrefix(low, "weather"):
		return weatherQuery
	case intent.HasWordPrefix(low, "news"):
		return newsQuery
	default:
		return noSubdomain
	}
}

func (r *Router) realtime(ctx context.Context, text string) string {
	switch subdomainOf(text) {
	case stockQuery:
		return r.stock(ctx, text)
	case cryptoQuery:
		coin := lookup.FindCoin(text)
		out, err := r.lookups.Crypto.Price(ctx, coin)
		if err != nil {
			return describe("the price of "+coin, err)
		}
		return out
	case weatherQuery:
		city := r.city(ctx, text)
		out, err := r.lookups.Weather.Current(ctx, city)
		if err != nil {
			return describe("the weather in "+city, err)
		}
		return out
	case newsQuery:
		topic := NewsTopic(text, r.cfg.DefaultTopic)
		out, err := r.lookups.News.Headlines(ctx, topic)
		if err != nil {
			return describe("news about "+topic, err)
		}
		return out
	default:
		// labelled real-time by the provider but nothing we can look up
		return r.general(ctx, text)
	}
}

func (r *Router) stock(ctx context.Context, text string) string {
	company := Company(text)
	symbol, err := r.lookups.Stock.FindTicker(ctx, company)
	if err != nil {
		log.Warn("Ticker lookup failed", "company", company, "err", err)
		return fmt.Sprintf("I could not find a stock ticker for %s.", company)
	}
	out, err := r.lookups.Stock.Quote(ctx, symbol)
	if err != nil {
		return describe("the stock price of "+symbol, err)
	}
	return out
}

func (r *Router) city(ctx context.Context, text string) string {
	if c := City(text); c != "" {
		return c
	}
	if r.lookups.Locator != nil {
		c, err := r.lookups.Locator.City(ctx)
		if err == nil {
			return c
		}
		log.Debug("Geolocation failed", "err", err)
	}
	return r.cfg.DefaultCity
}

func describe(what string, err error) string {
	log.Warn("Lookup failed", "what", what, "err", err)
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		return fmt.Sprintf("I couldn't find %s.", what)
	case errors.Is(err, lookup.ErrNoAPIKey):
		return fmt.Sprintf("I can't check %s because that service isn't configured.", what)
	default:
		return fmt.Sprintf("Sorry, I couldn't get %s right now.", what)
	}
}

var (
	companyRe = regexp.MustCompile(`(?:stock price|share price|price|stock|shares) (?:of|for) ([a-z0-9&.\s]+)`)
	cityRe    = regexp.MustCompile(`weather (?:in|of|at|for) ([\p{L}\s'-]+)`)
	topicRe   = regexp.MustCompile(`news (?:about|on|regarding) ([\p{L}0-9\s]+)`)
	trailerRe = regexp.MustCompile(`\s+(?:right now|today|tomorrow|now|please|currently)$`)
)

func capture(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return ""
	}
	s := strings.TrimSpace(strings.Trim(m[1], ". "))
	for {
		t := trailerRe.ReplaceAllString(s, "")
		if t == s {
			return s
		}
		s = t
	}
}

// Company extracts the company from a stock query, or returns the whole
// query when no "price of" phrase is present.
func Company(text string) string {
	if c := capture(companyRe, text); c != "" {
		return c
	}
	return strings.Trim(strings.TrimSpace(text), ".?!")
}

// City extracts a title-cased city from "weather in <city>".
func City(text string) string {
	if c := capture(cityRe, text); c != "" {
		return cases.Title(language.English).String(c)
	}
	return ""
}

// NewsTopic extracts the topic from "news about <topic>".
func NewsTopic(text, fallback string) string {
	if t := capture(topicRe, text); t != "" {
		return t
	}
	return fallback
}
