package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenthands/detour/internal/config"
	"github.com/agenthands/detour/internal/deviation"
	"github.com/agenthands/detour/internal/store"
)

// Prompter is the interactive surface the assistant talks through. Ask blocks
// until the driver answers; it is the only suspension point of an interaction.
type Prompter interface {
	Say(text string)
	Ask(question string) (string, error)
}

// Outcome is the result of one deviation interaction.
type Outcome struct {
	Case           *deviation.Case
	ConversationID string
	Rounds         int
	Escalated      bool
	HelpRequested  bool
}

var affirmatives = map[string]bool{
	"yes":         true,
	"sure":        true,
	"please":      true,
	"affirmative": true,
}

// AffirmativeHelp reports whether a follow-up answer asks for assistance.
func AffirmativeHelp(answer string) bool {
	return affirmatives[strings.ToLower(strings.TrimSpace(answer))]
}

const (
	helpQuestion     = "Do you need extra help? If yes, assistance will be sent."
	helpConfirmation = "Perfect, help is on the way."
	escalationNotice = "I couldn't collect everything I need. A dispatcher will contact you shortly."
)

// Assistant wires the collaborators of the information completion loop:
// prompt, record, acknowledge, extract, merge, until cause, new route and new
// ETA are all known or the attempt budget runs out.
type Assistant struct {
	conv        *Conversationalist
	tables      *store.Tables
	log         *store.ConversationLog
	prompts     config.Prompts
	maxAttempts int
	logger      *zap.Logger
}

func NewAssistant(conv *Conversationalist, tables *store.Tables, log *store.ConversationLog, cfg config.AssistantConfig, prompts config.Prompts, logger *zap.Logger) *Assistant {
	return &Assistant{
		conv:        conv,
		tables:      tables,
		log:         log,
		prompts:     prompts,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}
}

// Run performs one full interaction over a Prompter. It returns a completed
// case, or a partial one with Escalated set when the driver never supplied
// all three fields within the attempt budget. The only hard errors are input
// failures and context cancellation.
func (a *Assistant) Run(ctx context.Context, p Prompter, origin, destination, anomalyTime string) (*Outcome, error) {
	s := a.NewSession(origin, destination, anomalyTime)

	for !s.Done() {
		answer, err := p.Ask(s.Question())
		if err != nil {
			return nil, fmt.Errorf("failed to read driver answer: %w", err)
		}

		round, err := s.Answer(ctx, answer)
		if err != nil {
			return nil, err
		}
		p.Say(round.Ack)
		for _, note := range round.Notes {
			p.Say(note)
		}
		if round.Escalated {
			p.Say(escalationNotice)
		}
	}

	out := s.Outcome()
	if out.Escalated {
		return out, nil
	}

	followUp, err := p.Ask(helpQuestion)
	if err != nil {
		return nil, fmt.Errorf("failed to read follow-up answer: %w", err)
	}
	if AffirmativeHelp(followUp) {
		out.HelpRequested = true
		p.Say(helpConfirmation)
	}

	return out, nil
}

// CustomerMessageFallback is the static notice used when drafting fails.
func (a *Assistant) CustomerMessageFallback() string {
	return a.prompts.CustomerMessageFallback
}

// Session is one in-progress interaction. It owns no state beyond the case
// being filled and the generated conversation id, and is driven one
// question/answer round at a time.
type Session struct {
	a         *Assistant
	ID        string
	Case      *deviation.Case
	rounds    int
	escalated bool
	opening   string
	help      bool
}

// Round reports what one answer produced.
type Round struct {
	Ack       string
	Notes     []string
	Done      bool
	Escalated bool
}

func (a *Assistant) NewSession(origin, destination, anomalyTime string) *Session {
	return &Session{
		a:       a,
		ID:      uuid.NewString(),
		Case:    deviation.NewCase(origin, destination, anomalyTime),
		opening: a.openingPrompt(origin, destination, anomalyTime),
	}
}

func (s *Session) Done() bool {
	return s.Case.Complete() || s.escalated
}

// Question returns the next prompt: the opening while nothing is known,
// otherwise only the still-missing questions in fixed order, and the help
// follow-up once the case is complete.
func (s *Session) Question() string {
	missing := s.Case.Missing()
	switch {
	case len(missing) == 0:
		return helpQuestion
	case len(missing) == 3:
		return s.opening
	default:
		return followUpPrompt(missing)
	}
}

// Answer runs one round: record the exchange, acknowledge it, extract fields,
// merge them first-writer-wins, and propagate a freshly extracted ETA to the
// route table.
func (s *Session) Answer(ctx context.Context, answer string) (Round, error) {
	question := s.Question()
	s.rounds++

	if err := s.a.log.Append(deviation.ConversationRecord{
		ConversationID: s.ID,
		Origin:         s.Case.Origin,
		Destination:    s.Case.Destination,
		AnomalyTime:    s.Case.AnomalyTime,
		Question:       question,
		Answer:         answer,
	}); err != nil {
		// Best-effort: losing a log row must not end the interaction.
		s.a.logger.Error("conversation log append failed", zap.Error(err))
	}

	round := Round{}

	ack, err := s.a.conv.Acknowledge(ctx, answer)
	if err != nil {
		s.a.logger.Warn("acknowledgment failed, using fallback", zap.Error(err))
		ack = s.a.prompts.AcknowledgeFallback
	}
	round.Ack = ack

	fields, err := s.a.conv.ExtractFields(ctx, answer)
	if err != nil {
		// No progress this round; the loop re-asks.
		s.a.logger.Warn("extraction failed", zap.Error(err))
		fields = deviation.Fields{}
	}

	s.Case.Adopt(fields)

	if fields.NewETA != "" {
		round.Notes = append(round.Notes, s.propagateETA(fields.NewETA))
	}

	if !s.Case.Complete() && s.rounds >= s.a.maxAttempts {
		s.escalated = true
		s.a.logger.Warn("attempt budget exhausted, escalating with partial case",
			zap.String("conversation_id", s.ID),
			zap.Int("rounds", s.rounds))
	}

	round.Done = s.Done()
	round.Escalated = s.escalated
	return round, nil
}

// RequestHelp records the driver's answer to the follow-up question and
// reports whether assistance was dispatched.
func (s *Session) RequestHelp(answer string) bool {
	if AffirmativeHelp(answer) {
		s.help = true
	}
	return s.help
}

func (s *Session) Outcome() *Outcome {
	return &Outcome{
		Case:           s.Case,
		ConversationID: s.ID,
		Rounds:         s.rounds,
		Escalated:      s.escalated,
		HelpRequested:  s.help,
	}
}

func (s *Session) propagateETA(eta string) string {
	origin, destination := s.Case.Origin, s.Case.Destination
	err := s.a.tables.UpdateETA(origin, destination, eta)
	switch {
	case err == nil:
		return fmt.Sprintf("ETA updated to %s for %s -> %s.", eta, origin, destination)
	case errors.Is(err, store.ErrNotFound):
		return "Route not found in the table, ETA not persisted."
	default:
		s.a.logger.Error("eta update failed", zap.Error(err),
			zap.String("origin", origin), zap.String("destination", destination))
		return "ETA could not be persisted."
	}
}

func (a *Assistant) openingPrompt(origin, destination, anomalyTime string) string {
	info, err := a.tables.DriverInfo(origin, destination)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("driver lookup failed, using generic opening", zap.Error(err))
		}
		return fmt.Sprintf(
			"Hello! We detected a deviation between %s and %s at %s. "+
				"What happened? Where are you now? What is your new ETA?",
			origin, destination, anomalyTime)
	}

	return fmt.Sprintf(
		"Hello %s! We know you are driving truck %s. "+
			"You departed at %s and your estimated arrival was %s. "+
			"We detected a deviation between %s and %s at %s. "+
			"What happened? Where are you now? What is your new ETA?",
		info.Driver, info.TruckNumber, info.DepartureTime, info.ArrivalTime,
		origin, destination, anomalyTime)
}

// followUpPrompt asks only for the still-missing fields, in the fixed
// cause -> route -> eta order.
func followUpPrompt(missing []deviation.Field) string {
	parts := []string{"I still need this info:"}
	for _, f := range missing {
		switch f {
		case deviation.FieldCause:
			parts = append(parts, "Why did you deviate?")
		case deviation.FieldRoute:
			parts = append(parts, "What is the new route?")
		case deviation.FieldETA:
			parts = append(parts, "What is your new ETA?")
		}
	}
	return strings.Join(parts, " ")
}
