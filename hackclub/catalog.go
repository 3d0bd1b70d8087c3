package hackclub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/hackai/chatd/logger"
)

// Catalog caches the proxy's model list and refreshes it hourly. The
// /models endpoint needs no credential.
type Catalog struct {
	client *Client
	log    *logger.Logger
	cron   *cron.Cron

	mu     sync.RWMutex
	models []Model
}

func NewCatalog(client *Client, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.NewNop()
	}
	return &Catalog{client: client, log: log}
}

// Start fetches the list once and schedules hourly refreshes. A failed
// initial fetch is an error; a failed refresh keeps the previous list.
func (c *Catalog) Start(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}

	c.cron = cron.New()
	_, err := c.cron.AddFunc("@hourly", func() {
		if err := c.Refresh(context.Background()); err != nil {
			c.log.Warn("model catalog refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule catalog refresh: %w", err)
	}
	c.cron.Start()
	return nil
}

// Stop halts the refresh schedule.
func (c *Catalog) Stop() {
	if c.cron != nil {
		c.cron.Stop()
	}
}

// Refresh fetches /models and derives the chef grouping fields.
func (c *Catalog) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.client.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.client.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch model list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("model list request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var list modelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("failed to decode model list: %w", err)
	}

	for i := range list.Data {
		list.Data[i].Chef = strings.SplitN(list.Data[i].Name, ":", 2)[0]
		list.Data[i].ChefSlug = strings.SplitN(list.Data[i].ID, "/", 2)[0]
	}

	c.mu.Lock()
	c.models = list.Data
	c.mu.Unlock()

	c.log.Info("model catalog refreshed", "models", len(list.Data))
	return nil
}

// Models returns the cached list.
func (c *Catalog) Models() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// Lookup finds a model by id.
func (c *Catalog) Lookup(id string) (Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
