package logic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Reminder is the payload of one reading reminder.
type Reminder struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Day     int    `json:"day"`
	Message string `json:"message"`
}

// Notifier delivers reminders.
type Notifier interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// NewNotifier posts to url, or only logs when url is empty.
func NewNotifier(url string) Notifier {
	if url == "" {
		return LogNotifier{}
	}
	return &WebhookNotifier{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

// WebhookNotifier POSTs each reminder as JSON.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func (n *WebhookNotifier) SendReminder(ctx context.Context, r Reminder) error {
	body, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode reminder")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build reminder request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post reminder")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("reminder webhook returned %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier writes reminders to the log.
type LogNotifier struct{}

func (LogNotifier) SendReminder(_ context.Context, r Reminder) error {
	log.WithFields(log.Fields{"user": r.UserID, "day": r.Day}).Info(r.Message)
	return nil
}
