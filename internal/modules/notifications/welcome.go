package notifications

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/clients/mailer"
	"github.com/signalist/signalist/internal/domain"
	"github.com/signalist/signalist/internal/events"
)

// WelcomeJob sends one personalised welcome email per sign-up event
type WelcomeJob struct {
	ai       domain.TextGenerator
	sender   mailer.Sender
	signer   *UnsubscribeSigner
	renderer *Renderer
	baseURL  string
	log      zerolog.Logger
}

// NewWelcomeJob creates the welcome job. ai may be nil, in which case the default intro is used.
func NewWelcomeJob(ai domain.TextGenerator, sender mailer.Sender, signer *UnsubscribeSigner, renderer *Renderer, baseURL string, log zerolog.Logger) *WelcomeJob {
	return &WelcomeJob{
		ai:       ai,
		sender:   sender,
		signer:   signer,
		renderer: renderer,
		baseURL:  baseURL,
		log:      log.With().Str("job", "welcome_email").Logger(),
	}
}

// Name returns the function id
func (j *WelcomeJob) Name() string {
	return "sign-up-email"
}

// Run handles one app/user.created event. The model call may fail; the email is still
// attempted exactly once with the default intro.
func (j *WelcomeJob) Run(ctx context.Context, event *events.Event) error {
	data, ok := event.Decode().(*events.UserCreatedData)
	if !ok || data.Email == "" {
		return errors.New("welcome job needs a user.created event with an email")
	}

	intro := j.intro(ctx, data)
	unsubscribe := j.signer.Link(data.Email)

	html, err := j.renderer.Welcome(WelcomeData{
		Name:           data.Name,
		Intro:          intro,
		DashboardURL:   j.baseURL,
		UnsubscribeURL: unsubscribe,
	})
	if err != nil {
		return err
	}

	err = j.sender.Send(ctx, mailer.Message{
		FromName: "Signalist",
		To:       data.Email,
		Subject:  "Welcome to Signalist - your stock market toolkit is ready!",
		HTML:     html,
		Text:     "Thanks for joining Signalist. To stop daily emails: " + unsubscribe,
	})
	if err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	j.log.Info().Str("email", data.Email).Msg("Welcome email sent")
	return nil
}

func (j *WelcomeJob) intro(ctx context.Context, data *events.UserCreatedData) template.HTML {
	if j.ai == nil {
		return template.HTML(template.HTMLEscapeString(DefaultWelcomeIntro))
	}

	prompt := BuildWelcomePrompt(data.Country, data.InvestmentGoals, data.RiskTolerance, data.PreferredIndustry)
	text, err := j.ai.Generate(ctx, prompt)
	if err != nil || text == "" {
		j.log.Warn().Err(err).Str("email", data.Email).Msg("Using default welcome intro")
		text = DefaultWelcomeIntro
	}
	return j.renderer.Markdown(text)
}
