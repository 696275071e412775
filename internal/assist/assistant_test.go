package assist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agenthands/detour/internal/config"
	"github.com/agenthands/detour/internal/store"
)

const routesCSV = `Origin City,Destination City,id_ruta,truck_number,driver,departure_time,arrival_time
Dallas,Houston,7,TX-101,Maria Lopez,08:00,13:30
`

const anomaliesCSV = `Origin City,Destination City,id_anomaly
Dallas,Houston,7
`

type fixture struct {
	assistant  *Assistant
	mock       *MockLLM
	routesPath string
	logPath    string
}

func newFixture(t *testing.T, mock *MockLLM, maxAttempts int) *fixture {
	t.Helper()
	dir := t.TempDir()
	routes := filepath.Join(dir, "routes.csv")
	anomalies := filepath.Join(dir, "anomalies.csv")
	logPath := filepath.Join(dir, "conversations.csv")
	require.NoError(t, os.WriteFile(routes, []byte(routesCSV), 0o644))
	require.NoError(t, os.WriteFile(anomalies, []byte(anomaliesCSV), 0o644))

	cfg := config.Default()
	cfg.Store.RoutesPath = routes
	cfg.Store.AnomaliesPath = anomalies
	cfg.Assistant.MaxAttempts = maxAttempts

	tables := store.NewTables(cfg.Store)
	convLog := store.NewConversationLog(logPath)
	conv := NewConversationalist(mock, cfg.Prompts)

	return &fixture{
		assistant:  NewAssistant(conv, tables, convLog, cfg.Assistant, cfg.Prompts, zap.NewNop()),
		mock:       mock,
		routesPath: routes,
		logPath:    logPath,
	}
}

func TestRunCompletesInOneRound(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{
		"Thanks for the update, drive safe!",
		`{"cause": "accident", "new_route": ["Austin"], "new_eta": "18:30"}`,
	}}
	f := newFixture(t, mock, 5)

	p := &scriptedPrompter{answers: []string{
		"there was an accident, new route via Austin, eta 18:30",
		"nah",
	}}

	out, err := f.assistant.Run(context.Background(), p, "Dallas", "Houston", "14:00")
	require.NoError(t, err)

	assert.Equal(t, 1, out.Rounds)
	assert.False(t, out.Escalated)
	assert.False(t, out.HelpRequested)
	assert.Equal(t, "accident", out.Case.Cause)
	assert.Equal(t, []string{"Austin"}, out.Case.NewRoute)
	assert.Equal(t, "18:30", out.Case.NewETA)
	assert.NotEmpty(t, out.ConversationID)

	// Opening is personalized from the route table join.
	require.Len(t, p.questions, 2)
	assert.Contains(t, p.questions[0], "Maria Lopez")
	assert.Contains(t, p.questions[0], "TX-101")
	assert.Contains(t, p.questions[1], "Do you need extra help?")

	// The new ETA was propagated to the route table.
	data, err := os.ReadFile(f.routesPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Dallas,Houston,7,TX-101,Maria Lopez,08:00,18:30")

	// The exchange landed in the conversation log.
	logData, err := os.ReadFile(f.logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), out.ConversationID)
	assert.Contains(t, string(logData), "there was an accident, new route via Austin, eta 18:30")
}

func TestRunReasksOnlyMissingETA(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{
		"Got it, thanks!",
		`{"cause": "accident", "new_route": ["Austin"], "new_eta": null}`,
		"Understood!",
		`{"cause": null, "new_route": null, "new_eta": "18:30"}`,
	}}
	f := newFixture(t, mock, 5)

	p := &scriptedPrompter{answers: []string{
		"accident, rerouting via Austin, not sure yet when I'll arrive",
		"should be there by 18:30",
		"no",
	}}

	out, err := f.assistant.Run(context.Background(), p, "Dallas", "Houston", "14:00")
	require.NoError(t, err)

	assert.Equal(t, 2, out.Rounds)
	require.Len(t, p.questions, 3)
	// Second round asks only for the ETA; cause and route are not re-asked.
	assert.Equal(t, "I still need this info: What is your new ETA?", p.questions[1])
	assert.Equal(t, "accident", out.Case.Cause)
	assert.Equal(t, []string{"Austin"}, out.Case.NewRoute)
	assert.Equal(t, "18:30", out.Case.NewETA)
}

func TestRunEscalatesWhenBudgetExhausted(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{
		"Okay!", `{"cause": null, "new_route": null, "new_eta": null}`,
		"Okay!", `{"cause": "traffic", "new_route": null, "new_eta": null}`,
	}}
	f := newFixture(t, mock, 2)

	p := &scriptedPrompter{answers: []string{"not sure", "heavy traffic I guess"}}

	out, err := f.assistant.Run(context.Background(), p, "Dallas", "Houston", "14:00")
	require.NoError(t, err)

	assert.True(t, out.Escalated)
	assert.Equal(t, 2, out.Rounds)
	assert.Equal(t, "traffic", out.Case.Cause)
	assert.False(t, out.Case.Complete())
	// No help follow-up after an escalation.
	assert.Len(t, p.questions, 2)
	assert.Contains(t, p.said, "I couldn't collect everything I need. A dispatcher will contact you shortly.")
}

func TestRunHelpFollowUp(t *testing.T) {
	for answer, want := range map[string]bool{
		"sure": true,
		"SURE": true,
		"nah":  false,
	} {
		mock := &MockLLM{ResponseQueue: []string{
			"Thanks!",
			`{"cause": "accident", "new_route": ["Austin"], "new_eta": "18:30"}`,
		}}
		f := newFixture(t, mock, 5)
		p := &scriptedPrompter{answers: []string{"accident via Austin, eta 18:30", answer}}

		out, err := f.assistant.Run(context.Background(), p, "Dallas", "Houston", "14:00")
		require.NoError(t, err)
		assert.Equal(t, want, out.HelpRequested, "answer %q", answer)
		if want {
			assert.Contains(t, p.said, "Perfect, help is on the way.")
		}
	}
}

func TestRunGenericOpeningWithoutRouteContext(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{
		"Thanks!",
		`{"cause": "accident", "new_route": ["Austin"], "new_eta": "18:30"}`,
	}}
	f := newFixture(t, mock, 5)
	p := &scriptedPrompter{answers: []string{"accident via Austin, eta 18:30", "no"}}

	out, err := f.assistant.Run(context.Background(), p, "Laredo", "Lubbock", "09:15")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p.questions[0], "Hello! We detected a deviation between Laredo and Lubbock at 09:15."))
	// ETA extraction still fires an update attempt which misses the table.
	assert.Contains(t, p.said, "Route not found in the table, ETA not persisted.")
	assert.Equal(t, "18:30", out.Case.NewETA)
}

func TestRunModelFailureFallsBackAndEscalates(t *testing.T) {
	mock := &MockLLM{Err: errors.New("model unavailable")}
	f := newFixture(t, mock, 1)
	p := &scriptedPrompter{answers: []string{"there was an accident"}}

	out, err := f.assistant.Run(context.Background(), p, "Dallas", "Houston", "14:00")
	require.NoError(t, err)

	assert.True(t, out.Escalated)
	assert.False(t, out.Case.Complete())
	// The static acknowledgment covered for the failed call.
	assert.Contains(t, p.said, config.Default().Prompts.AcknowledgeFallback)
}
