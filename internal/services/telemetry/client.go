package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

var (
	// ErrDeviceNotFound провайдер не знает такого устройства
	ErrDeviceNotFound = errors.New("устройство не найдено у провайдера телеметрии")

	// ErrNoFix провайдер доступен, но текущей фиксации позиции нет
	ErrNoFix = errors.New("нет текущей фиксации GPS")
)

// Position последняя известная позиция устройства
type Position struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy"`
	Speed     float64   `json:"speed"`
	Course    float64   `json:"course"`
	FixTime   time.Time `json:"fixTime"`
}

// Client клиент провайдера GPS-телеметрии
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL:    os.Getenv("TELEMETRY_API_URL"),
		apiKey:     os.Getenv("TELEMETRY_API_KEY"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithURL создает клиент с явным адресом провайдера
func NewClientWithURL(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetLocation запрашивает последнюю известную позицию устройства.
// Возвращает ErrDeviceNotFound для неизвестного устройства и ErrNoFix,
// когда провайдер отвечает, но позиции нет — интерфейсу важно отличать
// "нет сигнала GPS" от "сервис телеметрии лежит".
func (c *Client) GetLocation(ctx context.Context, deviceID string) (*Position, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("не задан TELEMETRY_API_URL")
	}

	params := url.Values{}
	params.Add("deviceId", deviceID)

	reqURL := fmt.Sprintf("%s/positions/latest?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе телеметрии: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Разбираем ниже
	case http.StatusNotFound:
		return nil, ErrDeviceNotFound
	case http.StatusNoContent:
		return nil, ErrNoFix
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("провайдер телеметрии вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var position Position
	if err := json.NewDecoder(resp.Body).Decode(&position); err != nil {
		return nil, fmt.Errorf("ошибка при декодировании ответа телеметрии: %w", err)
	}

	if position.FixTime.IsZero() {
		return nil, ErrNoFix
	}

	return &position, nil
}
