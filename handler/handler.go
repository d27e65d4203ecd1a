// Package handler adapts Telegram webhook calls delivered through API
// Gateway into router invocations. Replies use Telegram's webhook-reply
// mechanism: the HTTP response body carries the sendMessage call, so no
// outbound Bot API request is needed.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"travelbot/internal/domain"
)

// Router is the chat dispatch surface the handler depends on.
type Router interface {
	HandleMessage(ctx context.Context, userID int64, username, firstName, text string) domain.Outbound
	HandleCallback(ctx context.Context, userID int64, data string) domain.Outbound
}

// update mirrors the subset of the Telegram Update object the bot reads.
type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From *tgUser `json:"from"`
		Chat *struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
	CallbackQuery *struct {
		ID      string  `json:"id"`
		From    *tgUser `json:"from"`
		Data    string  `json:"data"`
		Message *struct {
			Chat *struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

type tgUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// webhookReply is the sendMessage call returned in the webhook response body.
type webhookReply struct {
	Method      string `json:"method"`
	ChatID      int64  `json:"chat_id"`
	Text        string `json:"text"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

type replyKeyboard struct {
	Keyboard        [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard"`
	OneTimeKeyboard bool               `json:"one_time_keyboard"`
}

type keyboardButton struct {
	Text string `json:"text"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type Handler struct {
	router Router
}

func NewHandler(router Router) (*Handler, error) {
	if router == nil {
		return nil, errors.New("handler: router must not be nil")
	}
	return &Handler{router: router}, nil
}

// Handle processes one webhook delivery. It always returns 200 to Telegram;
// a non-2xx status would make Telegram retry the same update indefinitely.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(event.Headers)
	logger := slog.With("correlation_id", correlationID)

	var upd update
	if err := json.Unmarshal([]byte(event.Body), &upd); err != nil {
		logger.Warn("undecodable update, skipping", "err", err)
		return response(correlationID, nil), nil
	}

	switch {
	case upd.Message != nil && upd.Message.From != nil && upd.Message.Chat != nil:
		msg := upd.Message
		out := h.router.HandleMessage(ctx, msg.From.ID, msg.From.Username, msg.From.FirstName, msg.Text)
		return response(correlationID, reply(msg.Chat.ID, out)), nil

	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		cb := upd.CallbackQuery
		out := h.router.HandleCallback(ctx, cb.From.ID, cb.Data)
		chatID := cb.From.ID
		if cb.Message != nil && cb.Message.Chat != nil {
			chatID = cb.Message.Chat.ID
		}
		return response(correlationID, reply(chatID, out)), nil

	default:
		// Edited messages, channel posts and other update types are ignored.
		logger.Debug("update without message or callback, skipping", "update_id", upd.UpdateID)
		return response(correlationID, nil), nil
	}
}

func reply(chatID int64, out domain.Outbound) *webhookReply {
	if out.Empty() {
		return nil
	}
	r := &webhookReply{Method: "sendMessage", ChatID: chatID, Text: out.Text}

	switch {
	case len(out.Actions) > 0:
		rows := make([][]inlineButton, 0, len(out.Actions))
		for _, a := range out.Actions {
			rows = append(rows, []inlineButton{{Text: a.Label, CallbackData: a.Data}})
		}
		r.ReplyMarkup = inlineKeyboard{InlineKeyboard: rows}

	case len(out.Choices) > 0:
		rows := make([][]keyboardButton, 0, len(out.Choices))
		for _, c := range out.Choices {
			rows = append(rows, []keyboardButton{{Text: c}})
		}
		r.ReplyMarkup = replyKeyboard{Keyboard: rows, ResizeKeyboard: true, OneTimeKeyboard: true}
	}
	return r
}

func response(correlationID string, r *webhookReply) events.APIGatewayProxyResponse {
	headers := map[string]string{"X-Correlation-Id": correlationID}
	if r == nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}
	}
	body, err := json.Marshal(r)
	if err != nil {
		slog.Error("failed to encode webhook reply", "err", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}
	}
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(body),
	}
}

func correlationIDFrom(headers map[string]string) string {
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == "X-Correlation-Id" && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
