package cloud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/portico/internal/cloud/cloudtest"
)

type stubPrompter struct {
	answer    bool
	questions []string
}

func (p *stubPrompter) Confirm(_ context.Context, question string, def bool) (bool, error) {
	p.questions = append(p.questions, question)
	return p.answer, nil
}

func (p *stubPrompter) Secret(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func TestPromptLogin(t *testing.T) {
	srv := cloudtest.New(t)

	tests := []struct {
		name       string
		initialKey string
		answer     bool
		loginKey   string
		wantErr    error
		wantPrompt bool
		wantLogin  bool
	}{
		{name: "already authenticated", initialKey: srv.Token(time.Hour)},
		{name: "login accepted", answer: true, loginKey: srv.Token(time.Hour), wantPrompt: true, wantLogin: true},
		{name: "login declined", answer: false, wantErr: ErrAborted, wantPrompt: true},
		{name: "login did not help", answer: true, loginKey: "", wantErr: ErrNotAuthenticated, wantPrompt: true, wantLogin: true},
		{name: "expired key", initialKey: srv.Token(-time.Minute), answer: true, loginKey: srv.Token(time.Hour), wantPrompt: true, wantLogin: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := tt.initialKey
			cfg := srv.Config()
			cfg.SecretKey = ""
			client, err := NewClient(cfg, WithKeySource(func() (string, error) { return key, nil }))
			require.NoError(t, err)

			prompter := &stubPrompter{answer: tt.answer}
			loggedIn := false
			login := func(context.Context) error {
				loggedIn = true
				key = tt.loginKey
				return nil
			}

			err = PromptLogin(context.Background(), client, prompter, login)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantPrompt, len(prompter.questions) == 1)
			assert.Equal(t, tt.wantLogin, loggedIn)
		})
	}
}
