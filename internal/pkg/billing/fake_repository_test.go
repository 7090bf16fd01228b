package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tooldashai/tooldash/app/models"
)

type fakeRepository struct {
	mu      sync.Mutex
	events  map[int64]*models.WebhookEvent
	users   map[uint]*models.User
	// creditErrs are returned by successive CreditUserForEvent calls before
	// anything is written.
	creditErrs []error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		events: make(map[int64]*models.WebhookEvent),
		users:  make(map[uint]*models.User),
	}
}

func (f *fakeRepository) addUser(id uint, email string, credits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &models.User{ID: id, Email: email, Credits: credits}
}

func (f *fakeRepository) credits(id uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].Credits
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.ID]; ok {
		return false, nil
	}
	cp := *event
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.events[event.ID] = &cp
	return true, nil
}

func (f *fakeRepository) GetWebhookEvent(id int64) (*models.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id int64, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return ErrEventNotFound
	}
	if e.Processed {
		return nil
	}
	e.Processed = true
	msg := processingError
	e.ProcessingError = &msg
	return nil
}

func (f *fakeRepository) ListUnprocessedWebhookEvents(olderThan time.Time, limit int) ([]models.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WebhookEvent
	for _, e := range f.events {
		if !e.Processed && e.CreatedAt.Before(olderThan) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepository) GetUser(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepository) CreditUserForEvent(eventID int64, userID uint, credits int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.creditErrs) > 0 {
		err := f.creditErrs[0]
		f.creditErrs = f.creditErrs[1:]
		return false, err
	}
	e, ok := f.events[eventID]
	if !ok {
		return false, ErrEventNotFound
	}
	if e.Processed {
		return false, nil
	}
	u, ok := f.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	u.Credits += credits
	e.Processed = true
	empty := ""
	e.ProcessingError = &empty
	return true, nil
}

type fakeCheckoutClient struct {
	url      string
	err      error
	requests []CheckoutRequest
}

func (f *fakeCheckoutClient) CreateCheckout(ctx context.Context, in CheckoutRequest) (string, error) {
	f.requests = append(f.requests, in)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func testConfig() Config {
	return Config{
		APIKey:        "key",
		APIURL:        "http://lemon.invalid",
		StoreID:       "1",
		VariantID:     "2",
		WebhookSecret: "secret",
		WebhookURL:    "https://app.example/webhooks/lemonsqueezy",
		StoreStatus:   StoreStatusApproved,
		TestMode:      true,
		RedirectURL:   "https://app.example",
	}
}
