package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adelaroche/bosswatch/internal/boss"
)

func activeEvent() Event {
	return Event{
		Transition: boss.TransitionBecameActive,
		Record:     boss.StatusRecord{BossName: "Chaos Wyrm", Level: "Level 120", Phase: boss.PhaseActive},
	}
}

func TestTelegramSend(t *testing.T) {
	var gotPath, gotChatID, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChatID = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{APIBase: srv.URL, Token: "123:abc", ChatID: "42"}, zap.NewNop())
	require.True(t, tg.Enabled())
	require.NoError(t, tg.Send(context.Background(), activeEvent()))

	require.Equal(t, "/bot123:abc/sendMessage", gotPath)
	require.Equal(t, "42", gotChatID)
	require.Contains(t, gotText, "Chaos Wyrm")
	require.Contains(t, gotText, "ACTIVE")
}

func TestTelegramNon200IsSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false,"description":"bad token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{APIBase: srv.URL, Token: "bad", ChatID: "42"}, zap.NewNop())
	err := tg.Send(context.Background(), activeEvent())
	var serr *SendError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, http.StatusUnauthorized, serr.StatusCode)
	require.Contains(t, serr.Body, "bad token")
}

func TestTelegramDisabledIsNoop(t *testing.T) {
	tg := NewTelegram(TelegramConfig{}, zap.NewNop())
	require.False(t, tg.Enabled())
	require.NoError(t, tg.Send(context.Background(), activeEvent()))
}

func TestTelegramUnreachableHost(t *testing.T) {
	tg := NewTelegram(TelegramConfig{APIBase: "http://127.0.0.1:1", Token: "x", ChatID: "1"}, zap.NewNop())
	err := tg.SendText(context.Background(), "ping")
	var serr *SendError
	require.ErrorAs(t, err, &serr)
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		evt  Event
		want string
	}{
		{
			name: "became active",
			evt:  activeEvent(),
			want: "⚔️ Chaos Wyrm (Level 120) is ACTIVE — go fight it!",
		},
		{
			name: "approaching with countdown",
			evt: Event{
				Transition: boss.TransitionEnteredApproaching,
				Record: boss.StatusRecord{
					BossName:         "Frost Giant",
					Level:            "Level 95",
					Phase:            boss.PhaseApproaching,
					SecondsRemaining: 200,
				},
			},
			want: "⏳ Frost Giant (Level 95) spawns in 3m 20s",
		},
		{
			name: "ended",
			evt: Event{
				Transition: boss.TransitionEnded,
				Record:     boss.StatusRecord{BossName: "Chaos Wyrm", Phase: boss.PhaseEnded},
			},
			want: "💀 Chaos Wyrm is over.",
		},
		{
			name: "missing fields fall back",
			evt: Event{
				Transition: boss.TransitionBecameActive,
				Record:     boss.StatusRecord{Phase: boss.PhaseActive},
			},
			want: "⚔️ ? (level ?) is ACTIVE — go fight it!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatMessage(tt.evt))
		})
	}
}
