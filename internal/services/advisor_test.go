package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply   string
	err     error
	prompts []string
}

func (m *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func TestAdvisorService_Analyze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, cats := f.user(t, "a@example.com")

	_, err := f.transactions.Create(ctx, u.ID, TransactionInput{Amount: money(150000), Date: may(19), CategoryID: cats[0].ID})
	require.NoError(t, err)
	_, err = f.transactions.Create(ctx, u.ID, TransactionInput{Amount: money(99900), Date: may(1).AddDays(-30), CategoryID: cats[0].ID})
	require.NoError(t, err)

	model := &fakeModel{reply: "ANALIZA:\nOk.\nSAVETI:\n- Štedite\n"}
	svc := NewAdvisorService(f.repo, f.analytics, model, nil, nil)

	a, err := svc.Analyze(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Ok.", a.Analysis)
	assert.Equal(t, []string{"Štedite"}, a.Suggestions)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "RASHODI (ukupno: 1500.00 RSD)", "only the last 30 days are included")
}

func TestAdvisorService_Chat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.user(t, "a@example.com")
	model := &fakeModel{reply: "Manje jedite napolju."}
	svc := NewAdvisorService(f.repo, f.analytics, model, nil, nil)

	reply, err := svc.Chat(ctx, u.ID, "", "Kako da uštedim?")
	require.NoError(t, err)
	assert.Equal(t, "Manje jedite napolju.", reply)

	_, err = svc.Chat(ctx, u.ID, "", "   ")
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestAdvisorService_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, _ := f.user(t, "a@example.com")

	disabled := NewAdvisorService(f.repo, f.analytics, nil, nil, nil)
	_, err := disabled.Analyze(ctx, u.ID, "")
	assert.True(t, errors.Is(err, core.ErrUnavailable))
	_, err = disabled.Chat(ctx, u.ID, "", "hi")
	assert.True(t, errors.Is(err, core.ErrUnavailable))

	failing := NewAdvisorService(f.repo, f.analytics, &fakeModel{err: errors.New("quota")}, nil, nil)
	_, err = failing.Analyze(ctx, u.ID, "")
	assert.True(t, errors.Is(err, core.ErrUpstream))

	_, err = failing.Analyze(ctx, u.ID, "someone-elses-household")
	assert.True(t, errors.Is(err, core.ErrForbidden))
}
