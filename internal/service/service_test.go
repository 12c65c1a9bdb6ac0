package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/challenge"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/document"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/ledger"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/notify"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeNotifier records messages. For each attachment it notes whether the
// file existed at send time.
type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	sent     []notify.Message
	attached []bool
}

func (n *fakeNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, a := range msg.Attachments {
		_, err := os.Stat(a.Path)
		n.attached = append(n.attached, err == nil)
	}
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *fakeNotifier) last(t *testing.T) notify.Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	return n.sent[len(n.sent)-1]
}

// slowRenderer blocks until release is closed.
type slowRenderer struct{ release chan struct{} }

func (r slowRenderer) Render(s document.Summary) (*document.Artifact, error) {
	<-r.release
	return document.NewRenderer().Render(s)
}

type failingRenderer struct{}

func (failingRenderer) Render(document.Summary) (*document.Artifact, error) {
	return nil, errors.New("font missing")
}

const (
	chefID    = "chef-1"
	chefEmail = "chef@gourmetgo.test"
	userA     = "user-a"
	userB     = "user-b"
	adminID   = "admin-1"
)

var (
	asUserA = model.Requester{UserID: userA, Role: model.RoleUser}
	asUserB = model.Requester{UserID: userB, Role: model.RoleUser}
	asChef  = model.Requester{UserID: chefID, Role: model.RoleChef}
	asAdmin = model.Requester{UserID: adminID, Role: model.RoleAdmin}
)

type fixture struct {
	store       *memory.Store
	notifier    *fakeNotifier
	challenges  *challenge.MemoryStore
	bookings    *BookingService
	experiences *ExperienceService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	renderer     Renderer
	opts         BookingOptions
	clock        func() time.Time
	timeout      time.Duration
	wrapBookings func(BookingStore) BookingStore
}

func withRenderer(r Renderer) fixtureOption {
	return func(c *fixtureConfig) { c.renderer = r }
}

func withAnyChef() fixtureOption {
	return func(c *fixtureConfig) { c.opts.ChefBookingsAnyChef = true }
}

func withDeliveryTimeout(d time.Duration) fixtureOption {
	return func(c *fixtureConfig) { c.timeout = d }
}

func withBookingStore(wrap func(BookingStore) BookingStore) fixtureOption {
	return func(c *fixtureConfig) { c.wrapBookings = wrap }
}

func withClock(now func() time.Time) fixtureOption {
	return func(c *fixtureConfig) { c.clock = now }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{renderer: document.NewRenderer(), clock: time.Now, timeout: time.Second}
	for _, o := range opts {
		o(&cfg)
	}

	store := memory.New()
	store.PutUser(model.User{ID: chefID, Name: "Chef", Email: chefEmail, Role: model.RoleChef})
	store.PutUser(model.User{ID: userA, Name: "Ana", Email: "ana@example.com", Role: model.RoleUser})
	store.PutUser(model.User{ID: userB, Name: "Ben", Email: "ben@example.com", Role: model.RoleUser})

	logger := zap.NewNop()
	notifier := &fakeNotifier{}
	challenges := challenge.NewMemoryStore(15*time.Minute, 100).WithClock(cfg.clock)
	delivery := NewDelivery(cfg.renderer, notifier, cfg.timeout, logger)
	l := ledger.New(store, logger)
	var bookings BookingStore = store.Bookings()
	if cfg.wrapBookings != nil {
		bookings = cfg.wrapBookings(bookings)
	}

	return &fixture{
		store:      store,
		notifier:   notifier,
		challenges: challenges,
		bookings: NewBookingService(store.Experiences(), bookings, store.Users(),
			l, delivery, cfg.renderer, cfg.opts, logger),
		experiences: NewExperienceService(store.Experiences(), store.Users(), challenges,
			delivery, 15*time.Minute, logger),
	}
}

func (f *fixture) experience(t *testing.T, capacity int, status model.ExperienceStatus) *model.Experience {
	t.Helper()
	e := &model.Experience{
		ChefID:            chefID,
		Title:             "Seven-course tasting menu",
		Location:          "Lisbon",
		Capacity:          capacity,
		RemainingCapacity: capacity,
		Status:            status,
		Date:              time.Date(2026, 12, 12, 19, 30, 0, 0, time.UTC),
	}
	require.NoError(t, f.store.CreateExperience(context.Background(), e))
	return e
}

func (f *fixture) reload(t *testing.T, id string) *model.Experience {
	t.Helper()
	e, err := f.store.GetExperience(context.Background(), id)
	require.NoError(t, err)
	return e
}

func bookingRequest(experienceID, name string, people int) model.CreateBookingRequest {
	return model.CreateBookingRequest{
		ExperienceID:  experienceID,
		People:        people,
		Name:          name,
		Email:         "ana@example.com",
		Phone:         "+351 900 000 000",
		TermsAccepted: true,
		PaymentMethod: model.PaymentOnSite,
	}
}
