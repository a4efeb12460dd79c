package subscriberstore_test

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	subscriberstore "github.com/dalemusser/automationhub/internal/app/store/subscribers"
	"github.com/dalemusser/automationhub/internal/app/system/indexes"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/dalemusser/automationhub/internal/testutil"
)

func TestStore_ConsumeToken_SingleUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := subscriberstore.New(db)
	fx := testutil.NewFixtures(t, db)

	fx.CreateSubscriber(ctx, "s@example.com", models.SubscriberStatusPending, "tok123", time.Hour)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConsumeToken(ctx, "tok123", time.Now().UTC())
			if err == nil {
				atomic.AddInt32(&wins, 1)
			} else if !errors.Is(err, subscriberstore.ErrNotFound) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("token consumed %d times, want 1", wins)
	}

	got, err := store.GetByEmail(ctx, "s@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.Status != models.SubscriberStatusSubscribed {
		t.Errorf("status = %q, want subscribed", got.Status)
	}
	if got.VerificationToken != "" || got.VerificationExpires != nil {
		t.Error("expected token and expiry cleared")
	}
}

func TestStore_ConsumeToken_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := subscriberstore.New(db)
	fx := testutil.NewFixtures(t, db)

	fx.CreateSubscriber(ctx, "old@example.com", models.SubscriberStatusPending, "stale", -time.Minute)

	if _, err := store.ConsumeToken(ctx, "stale", time.Now().UTC()); !errors.Is(err, subscriberstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired token, got %v", err)
	}
	got, _ := store.GetByEmail(ctx, "old@example.com")
	if got.Status != models.SubscriberStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := subscriberstore.New(db)

	sub := models.Subscriber{Email: "dup@example.com", Status: models.SubscriberStatusPending}
	if _, err := store.Create(ctx, sub); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := store.Create(ctx, sub); !errors.Is(err, subscriberstore.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_ListRecipients_And_MarkSent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := subscriberstore.New(db)
	fx := testutil.NewFixtures(t, db)

	fx.CreateSubscriber(ctx, "all@example.com", models.SubscriberStatusSubscribed, "", 0)
	fx.CreateSubscriber(ctx, "pending@example.com", models.SubscriberStatusPending, "t", time.Hour)
	fx.CreateSubscriber(ctx, "research@example.com", models.SubscriberStatusSubscribed, "", 0)
	if _, err := store.SetPreferences(ctx, "research@example.com", models.Preferences{Research: true}, time.Now().UTC()); err != nil {
		t.Fatalf("SetPreferences failed: %v", err)
	}

	got, err := store.ListRecipients(ctx, []string{"automation"})
	if err != nil {
		t.Fatalf("ListRecipients failed: %v", err)
	}
	if len(got) != 1 || got[0] != "all@example.com" {
		t.Errorf("automation recipients = %v", got)
	}

	got, err = store.ListRecipients(ctx, []string{"automation", "research"})
	if err != nil {
		t.Fatalf("ListRecipients failed: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "all@example.com" || got[1] != "research@example.com" {
		t.Errorf("automation|research recipients = %v", got)
	}

	n, err := store.MarkSent(ctx, []string{"all@example.com"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("MarkSent failed: %v", err)
	}
	if n != 1 {
		t.Errorf("marked %d, want 1", n)
	}
	sub, _ := store.GetByEmail(ctx, "all@example.com")
	if sub.LastEmailSent == nil {
		t.Error("expected lastEmailSent set")
	}
	other, _ := store.GetByEmail(ctx, "research@example.com")
	if other.LastEmailSent != nil {
		t.Error("undelivered subscriber should not be marked")
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := subscriberstore.New(db)
	fx := testutil.NewFixtures(t, db)

	fx.CreateSubscriber(ctx, "u@example.com", models.SubscriberStatusPending, "tok", time.Hour)

	if err := store.Unsubscribe(ctx, "u@example.com", time.Now().UTC()); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	got, _ := store.GetByEmail(ctx, "u@example.com")
	if got.Status != models.SubscriberStatusUnsubscribed || got.VerificationToken != "" {
		t.Errorf("unexpected subscriber: %+v", got)
	}
	if err := store.Unsubscribe(ctx, "nobody@example.com", time.Now().UTC()); !errors.Is(err, subscriberstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
