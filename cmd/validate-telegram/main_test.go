package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/forecast-ai-go/internal/config"
)

type MockBot struct {
	mock.Mock
}

func (m *MockBot) GetMe(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockBot) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func TestCheckConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TelegramConfig
		wantErr string
	}{
		{"missing token", config.TelegramConfig{ChatID: 42}, "TELEGRAM_BOT_TOKEN"},
		{"missing chat", config.TelegramConfig{BotToken: "123:abc"}, "TELEGRAM_CHAT_ID"},
		{"complete", config.TelegramConfig{BotToken: "123:abc", ChatID: 42}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := checkConfig(tt.cfg, &out)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Contains(t, out.String(), "length: 7")
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	me := &models.User{ID: 7, FirstName: "Forecaster", Username: "forecast_bot"}

	t.Run("get me only", func(t *testing.T) {
		client := new(MockBot)
		client.On("GetMe", mock.Anything).Return(me, nil).Once()

		var out bytes.Buffer
		require.NoError(t, validate(context.Background(), client, 42, false, &out))
		assert.Contains(t, out.String(), "@forecast_bot")
		client.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	})

	t.Run("send test message", func(t *testing.T) {
		client := new(MockBot)
		client.On("GetMe", mock.Anything).Return(me, nil).Once()
		client.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
			return p.ChatID == int64(42)
		})).Return(&models.Message{ID: 1}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, validate(context.Background(), client, 42, true, &out))
		assert.Contains(t, out.String(), "Test message sent to chat 42")
		client.AssertExpectations(t)
	})

	t.Run("api failure", func(t *testing.T) {
		client := new(MockBot)
		client.On("GetMe", mock.Anything).Return(nil, errors.New("unauthorized")).Once()

		err := validate(context.Background(), client, 42, false, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unauthorized")
	})

	t.Run("send failure", func(t *testing.T) {
		client := new(MockBot)
		client.On("GetMe", mock.Anything).Return(me, nil).Once()
		client.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("chat not found")).Once()

		err := validate(context.Background(), client, 42, true, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat not found")
	})
}
