package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"travelbot/internal/domain"
)

type stubRouter struct {
	out domain.Outbound

	gotUserID    int64
	gotUsername  string
	gotFirstName string
	gotText      string
	gotData      string
	callbacks    int
}

func (s *stubRouter) HandleMessage(_ context.Context, userID int64, username, firstName, text string) domain.Outbound {
	s.gotUserID = userID
	s.gotUsername = username
	s.gotFirstName = firstName
	s.gotText = text
	return s.out
}

func (s *stubRouter) HandleCallback(_ context.Context, userID int64, data string) domain.Outbound {
	s.callbacks++
	s.gotUserID = userID
	s.gotData = data
	return s.out
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/webhook",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_MessageUpdate(t *testing.T) {
	router := &stubRouter{out: domain.Outbound{Text: "hello"}}
	h, err := NewHandler(router)
	require.NoError(t, err)

	body := `{"update_id":1,"message":{"from":{"id":42,"username":"wanderer","first_name":"Ada"},"chat":{"id":99},"text":"/start"}}`
	resp, err := h.Handle(context.Background(), makeEvent(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])

	require.Equal(t, int64(42), router.gotUserID)
	require.Equal(t, "wanderer", router.gotUsername)
	require.Equal(t, "Ada", router.gotFirstName)
	require.Equal(t, "/start", router.gotText)

	reply := parseBody[webhookReply](t, resp.Body)
	require.Equal(t, "sendMessage", reply.Method)
	require.Equal(t, int64(99), reply.ChatID)
	require.Equal(t, "hello", reply.Text)
	require.Nil(t, reply.ReplyMarkup)
}

func TestHandle_CallbackUpdate(t *testing.T) {
	router := &stubRouter{out: domain.Outbound{Text: "deleted"}}
	h, err := NewHandler(router)
	require.NoError(t, err)

	body := `{"update_id":2,"callback_query":{"id":"cb1","from":{"id":42},"data":"trip:delete:trip-1","message":{"chat":{"id":99}}}}`
	resp, err := h.Handle(context.Background(), makeEvent(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, 1, router.callbacks)
	require.Equal(t, "trip:delete:trip-1", router.gotData)

	reply := parseBody[webhookReply](t, resp.Body)
	require.Equal(t, int64(99), reply.ChatID)
	require.Equal(t, "deleted", reply.Text)
}

func TestHandle_ChoicesBecomeReplyKeyboard(t *testing.T) {
	router := &stubRouter{out: domain.Outbound{Text: "Select a city:", Choices: []string{"Lisbon", "Other city..."}}}
	h, err := NewHandler(router)
	require.NoError(t, err)

	body := `{"message":{"from":{"id":42},"chat":{"id":42},"text":"/weather"}}`
	resp, err := h.Handle(context.Background(), makeEvent(body))
	require.NoError(t, err)

	var reply struct {
		ReplyMarkup replyKeyboard `json:"reply_markup"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &reply))
	require.Len(t, reply.ReplyMarkup.Keyboard, 2)
	require.Equal(t, "Lisbon", reply.ReplyMarkup.Keyboard[0][0].Text)
	require.True(t, reply.ReplyMarkup.OneTimeKeyboard)
}

func TestHandle_ActionsBecomeInlineKeyboard(t *testing.T) {
	router := &stubRouter{out: domain.Outbound{
		Text:    "Your trips:",
		Actions: []domain.Action{{Label: "📍 Lisbon", Data: "trip:view:trip-1"}},
	}}
	h, err := NewHandler(router)
	require.NoError(t, err)

	body := `{"message":{"from":{"id":42},"chat":{"id":42},"text":"/my_trips"}}`
	resp, err := h.Handle(context.Background(), makeEvent(body))
	require.NoError(t, err)

	var reply struct {
		ReplyMarkup inlineKeyboard `json:"reply_markup"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &reply))
	require.Len(t, reply.ReplyMarkup.InlineKeyboard, 1)
	require.Equal(t, "trip:view:trip-1", reply.ReplyMarkup.InlineKeyboard[0][0].CallbackData)
}

func TestHandle_EmptyOutboundSendsNoReply(t *testing.T) {
	router := &stubRouter{}
	h, err := NewHandler(router)
	require.NoError(t, err)

	body := `{"message":{"from":{"id":42},"chat":{"id":42},"text":"idle chatter"}}`
	resp, err := h.Handle(context.Background(), makeEvent(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Body)
}

func TestHandle_UndecodableBodyStillReturns200(t *testing.T) {
	h, err := NewHandler(&stubRouter{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Body)
}

func TestHandle_UnsupportedUpdateTypeIsSkipped(t *testing.T) {
	router := &stubRouter{out: domain.Outbound{Text: "never sent"}}
	h, err := NewHandler(router)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"update_id":3,"edited_message":{"text":"x"}}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Body)
	require.Zero(t, router.callbacks)
	require.Empty(t, router.gotText)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h, err := NewHandler(&stubRouter{out: domain.Outbound{Text: "ok"}})
	require.NoError(t, err)

	event := makeEvent(`{"message":{"from":{"id":42},"chat":{"id":42},"text":"/help"}}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
