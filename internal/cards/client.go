// Package cards fetches VTES card metadata from the KRCG card API.
package cards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lutefd/tabletop-api/internal/domain/decks"
)

const DefaultBaseURL = "https://api.krcg.org"

var ErrCardNotFound = errors.New("card not found")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type krcgCard struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Types       []string `json:"types"`
	Disciplines []string `json:"disciplines"`
	CardText    string   `json:"card_text"`
	Title       string   `json:"title"`
}

func (c *Client) Card(ctx context.Context, id int) (decks.CardMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/card/%d", c.baseURL, id), nil)
	if err != nil {
		return decks.CardMetadata{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decks.CardMetadata{}, fmt.Errorf("fetch card %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decks.CardMetadata{}, fmt.Errorf("%w: %d", ErrCardNotFound, id)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decks.CardMetadata{}, fmt.Errorf("fetch card %d: unexpected status %d", id, resp.StatusCode)
	}

	var raw krcgCard
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return decks.CardMetadata{}, fmt.Errorf("decode card %d: %w", id, err)
	}
	if raw.ID == 0 {
		raw.ID = id
	}
	return decks.CardMetadata{
		ID:          raw.ID,
		Name:        raw.Name,
		Types:       raw.Types,
		Disciplines: raw.Disciplines,
		Text:        raw.CardText,
		Title:       raw.Title,
	}, nil
}
