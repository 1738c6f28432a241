package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Suggestion одна адресная подсказка геокодера
type Suggestion struct {
	FormattedAddress string  `json:"formattedAddress"`
	Latitude         float64 `json:"lat"`
	Longitude        float64 `json:"lon"`
	City             string  `json:"city"`
	Country          string  `json:"country"`
	Postcode         string  `json:"postcode"`
}

type autocompleteResponse struct {
	Results []struct {
		Formatted string  `json:"formatted"`
		Lat       float64 `json:"lat"`
		Lon       float64 `json:"lon"`
		City      string  `json:"city"`
		Country   string  `json:"country"`
		Postcode  string  `json:"postcode"`
	} `json:"results"`
}

// Client клиент провайдера геокодирования с кэшем и ограничением
// количества запросов
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	cacheService  *CacheService
	rateLimiter   *time.Ticker
	requestsMutex sync.Mutex
	requestsCount int
	requestsLimit int
	resetTime     time.Time
}

// NewClient создает клиент геокодера. Дневной лимит запросов берется из
// конфигурации, по умолчанию 3000.
func NewClient(redisClient *redis.Client) *Client {
	requestsLimit := 3000
	if limitStr := os.Getenv("GEOCODE_DAILY_LIMIT"); limitStr != "" {
		if val, err := strconv.Atoi(limitStr); err == nil && val > 0 {
			requestsLimit = val
		}
	}

	return &Client{
		baseURL:       os.Getenv("GEOCODE_API_URL"),
		apiKey:        os.Getenv("GEOCODE_API_KEY"),
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		cacheService:  NewCacheService(redisClient),
		rateLimiter:   time.NewTicker(200 * time.Millisecond), // Максимум 5 запросов в секунду
		requestsLimit: requestsLimit,
		resetTime:     time.Now().Add(24 * time.Hour),
	}
}

// checkRateLimit проверяет дневной лимит и выдерживает паузу между запросами
func (c *Client) checkRateLimit() error {
	c.requestsMutex.Lock()
	defer c.requestsMutex.Unlock()

	if time.Now().After(c.resetTime) {
		c.requestsCount = 0
		c.resetTime = time.Now().Add(24 * time.Hour)
	}

	if c.requestsCount >= c.requestsLimit {
		return fmt.Errorf("превышен дневной лимит запросов к геокодеру (%d)", c.requestsLimit)
	}

	<-c.rateLimiter.C

	c.requestsCount++
	return nil
}

// Autocomplete возвращает адресные подсказки по свободному тексту.
// Ошибка геокодера не фатальна: форма адреса остается свободным вводом.
// Контекст приходит от HTTP-запроса: клиент закрыл форму — запрос к
// провайдеру отменяется.
func (c *Client) Autocomplete(ctx context.Context, query, countryFilter string, limit int) ([]Suggestion, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("не задан GEOCODE_API_URL")
	}

	if limit <= 0 || limit > 20 {
		limit = 5
	}

	cacheKey := c.cacheService.GenerateKey(query, countryFilter, limit)

	var cached []Suggestion
	found, err := c.cacheService.Get(ctx, cacheKey, &cached)
	if err != nil {
		log.Printf("Ошибка при получении подсказок из кэша: %v", err)
	} else if found {
		return cached, nil
	}

	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("text", query)
	params.Add("limit", strconv.Itoa(limit))
	params.Add("apiKey", c.apiKey)
	if countryFilter != "" {
		params.Add("filter", "countrycode:"+countryFilter)
	}

	reqURL := fmt.Sprintf("%s/autocomplete?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании запроса к геокодеру: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе к геокодеру: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("геокодер вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var result autocompleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ошибка при декодировании ответа геокодера: %w", err)
	}

	suggestions := make([]Suggestion, 0, len(result.Results))
	for _, item := range result.Results {
		suggestions = append(suggestions, Suggestion{
			FormattedAddress: item.Formatted,
			Latitude:         item.Lat,
			Longitude:        item.Lon,
			City:             item.City,
			Country:          item.Country,
			Postcode:         item.Postcode,
		})
	}

	if err := c.cacheService.Set(ctx, cacheKey, suggestions); err != nil {
		log.Printf("Ошибка при сохранении подсказок в кэш: %v", err)
	}

	return suggestions, nil
}

// Close останавливает rate limiter
func (c *Client) Close() {
	c.rateLimiter.Stop()
}
