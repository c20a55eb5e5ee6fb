package notifications

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/signalist/signalist/internal/clients/mailer"
	"github.com/signalist/signalist/internal/domain"
	"github.com/signalist/signalist/internal/modules/market"
)

// digestConcurrency bounds how many users are processed at once
const digestConcurrency = 4

// Recipients lists users who should get the digest
type Recipients interface {
	ListForNewsEmail(ctx context.Context) ([]domain.User, error)
}

// DigestResult summarises one digest run. Sent counts delivered emails.
type DigestResult struct {
	Users  int `json:"users"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Message renders the result for function run logs
func (r DigestResult) Message() string {
	if r.Users == 0 {
		return "No users found for news email."
	}
	return fmt.Sprintf("Daily news summary processed for %d users (%d sent, %d failed)", r.Users, r.Sent, r.Failed)
}

// DigestJob sends the daily AI-summarised news email to every subscribed user
type DigestJob struct {
	users     Recipients
	watchlist domain.WatchlistSymbols
	news      domain.NewsProvider
	ai        domain.TextGenerator
	sender    mailer.Sender
	signer    *UnsubscribeSigner
	renderer  *Renderer
	baseURL   string
	now       func() time.Time
	log       zerolog.Logger
}

// DigestDeps groups the digest job's collaborators
type DigestDeps struct {
	Users     Recipients
	Watchlist domain.WatchlistSymbols
	News      domain.NewsProvider
	// AI may be nil; the digest then lists headlines without a summary
	AI       domain.TextGenerator
	Sender   mailer.Sender
	Signer   *UnsubscribeSigner
	Renderer *Renderer
	BaseURL  string
}

// NewDigestJob creates the digest job
func NewDigestJob(deps DigestDeps, log zerolog.Logger) *DigestJob {
	return &DigestJob{
		users:     deps.Users,
		watchlist: deps.Watchlist,
		news:      deps.News,
		ai:        deps.AI,
		sender:    deps.Sender,
		signer:    deps.Signer,
		renderer:  deps.Renderer,
		baseURL:   deps.BaseURL,
		now:       time.Now,
		log:       log.With().Str("job", "daily_digest").Logger(),
	}
}

// Name returns the function id
func (j *DigestJob) Name() string {
	return "daily-news-summary"
}

// Run processes every eligible user. A user's failure is logged and counted;
// it never stops the batch. Only failing to list users returns an error.
func (j *DigestJob) Run(ctx context.Context) (DigestResult, error) {
	users, err := j.users.ListForNewsEmail(ctx)
	if err != nil {
		return DigestResult{}, fmt.Errorf("failed to list digest users: %w", err)
	}

	result := DigestResult{Users: len(users)}
	if len(users) == 0 {
		j.log.Info().Msg("No users found for news email")
		return result, nil
	}

	date := FormatDate(j.now())
	var sent, failed int64

	eg := new(errgroup.Group)
	eg.SetLimit(digestConcurrency)
	for _, u := range users {
		u := u
		eg.Go(func() error {
			if err := j.sendTo(ctx, u, date); err != nil {
				atomic.AddInt64(&failed, 1)
				j.log.Error().Err(err).Str("email", u.Email).Msg("Failed to send daily digest")
				return nil
			}
			atomic.AddInt64(&sent, 1)
			return nil
		})
	}
	_ = eg.Wait()

	result.Sent = int(sent)
	result.Failed = int(failed)
	j.log.Info().Int("users", result.Users).Int("sent", result.Sent).Int("failed", result.Failed).Msg("Daily digest finished")
	return result, nil
}

func (j *DigestJob) sendTo(ctx context.Context, u domain.User, date string) error {
	symbols, err := j.watchlist.SymbolsByEmail(ctx, u.Email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("watchlist: %w", err)
	}

	articles, err := j.news.GetNews(ctx, symbols)
	if err != nil {
		return fmt.Errorf("news: %w", err)
	}
	if len(articles) == 0 && len(symbols) > 0 {
		if articles, err = j.news.GetNews(ctx, nil); err != nil {
			return fmt.Errorf("general news: %w", err)
		}
	}
	if len(articles) > market.MaxArticles {
		articles = articles[:market.MaxArticles]
	}

	summary, err := j.summary(ctx, u, articles)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	unsubscribe := j.signer.Link(u.Email)

	html, err := j.renderer.Digest(DigestData{
		Date:           date,
		Summary:        summary,
		Articles:       articles,
		DashboardURL:   j.baseURL,
		UnsubscribeURL: unsubscribe,
	})
	if err != nil {
		return err
	}

	return j.sender.Send(ctx, mailer.Message{
		FromName: "Signalist News",
		To:       u.Email,
		Subject:  "Market News Summary Today - " + date,
		HTML:     html,
		Text:     "Today's market news summary from Signalist. To stop daily emails: " + unsubscribe,
	})
}

// summary asks the model for a Markdown digest. Without a model the email carries the
// article list alone; a configured model that fails fails the user.
func (j *DigestJob) summary(ctx context.Context, u domain.User, articles []domain.FormattedNewsArticle) (template.HTML, error) {
	if len(articles) == 0 {
		return j.renderer.Markdown(DefaultDigestSummary), nil
	}
	if j.ai == nil {
		return "", nil
	}

	prompt, err := BuildDigestPrompt(articles, u.Country)
	if err != nil {
		return "", err
	}

	text, err := j.ai.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if text == "" {
		text = DefaultDigestSummary
	}
	return j.renderer.Markdown(text), nil
}
