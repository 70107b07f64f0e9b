package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier delivers messages over the Telegram bot API. Plain
// messages use sendMessage; messages with an attachment use sendDocument
// with the text as caption.
type TelegramNotifier struct {
	hc     *http.Client
	base   string
	token  string
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) *TelegramNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramNotifier{
		hc:     &http.Client{Timeout: 30 * time.Second},
		base:   telegramAPI,
		token:  token,
		chatID: chatID,
		logger: logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.Attachment != nil {
		return n.sendDocument(ctx, msg)
	}
	return n.sendMessage(ctx, msg.Text)
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	form := url.Values{
		"chat_id": {strconv.FormatInt(n.chatID, 10)},
		"text":    {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return n.do(req)
}

func (n *TelegramNotifier) sendDocument(ctx context.Context, msg Message) error {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(n.chatID, 10)); err != nil {
		return err
	}
	if msg.Text != "" {
		if err := w.WriteField("caption", msg.Text); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("document", msg.Attachment.Filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(msg.Attachment.Data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint("sendDocument"), buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return n.do(req)
}

func (n *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.base, n.token, method)
}

func (n *TelegramNotifier) do(req *http.Request) error {
	resp, err := n.hc.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
