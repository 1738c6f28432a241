package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// MailService клиент почтового шлюза. Шлюз принимает имя шаблона и
// структурированные данные, верстка письма — на его стороне.
type MailService struct {
	baseURL    string
	apiKey     string
	fromName   string
	httpClient *http.Client
}

type mailPayload struct {
	Template string                 `json:"template"`
	To       string                 `json:"to"`
	FromName string                 `json:"fromName,omitempty"`
	Data     map[string]interface{} `json:"data"`
}

func NewMailService() *MailService {
	return &MailService{
		baseURL:  os.Getenv("MAIL_API_URL"),
		apiKey:   os.Getenv("MAIL_API_KEY"),
		fromName: os.Getenv("MAIL_FROM_NAME"),
		// Таймаут запроса задается контекстом диспетчера, здесь не ограничиваем
		httpClient: &http.Client{},
	}
}

// Send отправляет письмо по шаблону. Имена шаблонов совпадают с видами
// уведомлений один к одному.
func (m *MailService) Send(ctx context.Context, template, to string, data map[string]interface{}) error {
	if m.baseURL == "" {
		return fmt.Errorf("не задан MAIL_API_URL, отправка писем отключена")
	}

	payload := mailPayload{
		Template: template,
		To:       to,
		FromName: m.fromName,
		Data:     data,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка при маршалинге письма: %w", err)
	}

	url := fmt.Sprintf("%s/send", m.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("ошибка при создании запроса: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка при отправке письма: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("почтовый шлюз вернул статус %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
