package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

// These tests need a throwaway Postgres. They exercise the conditional
// claim updates and the read-marking transaction end to end, because the
// guarantees live in the SQL, not in Go.

func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("CAMPUSFIND_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("CAMPUSFIND_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func seedUser(t *testing.T, s *PostgresStore, id, name string) {
	t.Helper()
	err := s.InsertUser(context.Background(), User{
		ID:           id,
		Name:         name,
		Email:        id + "@campus.test",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func TestClaimLifecycleTransitions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u-rep", "Reporter")
	seedUser(t, s, "u-clm", "Claimer")
	seedUser(t, s, "u-rival", "Rival")

	if err := s.InsertItem(ctx, Item{ID: "it-1", Title: "Blue backpack", Status: "found", ReportedBy: "u-rep"}); err != nil {
		t.Fatalf("insert item: %v", err)
	}

	ok, err := s.RequestClaim(ctx, "it-1", "u-clm", "left it in the library")
	if err != nil || !ok {
		t.Fatalf("first claim request: ok=%v err=%v", ok, err)
	}
	item, err := s.GetItem(ctx, "it-1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.ClaimStatus != "pending" || item.ClaimedByID != "u-clm" {
		t.Fatalf("after request: status=%q claimer=%q", item.ClaimStatus, item.ClaimedByID)
	}

	// A rival re-request while pending takes over the claim.
	if ok, err := s.RequestClaim(ctx, "it-1", "u-rival", ""); err != nil || !ok {
		t.Fatalf("takeover request: ok=%v err=%v", ok, err)
	}
	item, _ = s.GetItem(ctx, "it-1")
	if item.ClaimedByID != "u-rival" || item.ClaimStatus != "pending" {
		t.Fatalf("after takeover: status=%q claimer=%q", item.ClaimStatus, item.ClaimedByID)
	}

	if ok, err := s.ResolveClaim(ctx, "it-1", "approved"); err != nil || !ok {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}

	// Approved is terminal for both requests and resolutions.
	if ok, _ := s.RequestClaim(ctx, "it-1", "u-clm", ""); ok {
		t.Fatal("claim request accepted on an approved item")
	}
	if ok, _ := s.ResolveClaim(ctx, "it-1", "rejected"); ok {
		t.Fatal("resolution accepted on a non-pending item")
	}

	// A rejected claim reopens the item for a fresh request.
	if err := s.InsertItem(ctx, Item{ID: "it-2", Title: "Keys", Status: "found", ReportedBy: "u-rep"}); err != nil {
		t.Fatalf("insert item: %v", err)
	}
	if ok, _ := s.RequestClaim(ctx, "it-2", "u-clm", ""); !ok {
		t.Fatal("claim request refused on fresh item")
	}
	if ok, _ := s.ResolveClaim(ctx, "it-2", "rejected"); !ok {
		t.Fatal("reject refused while pending")
	}
	if ok, _ := s.RequestClaim(ctx, "it-2", "u-rival", ""); !ok {
		t.Fatal("claim request refused after rejection")
	}
}

func TestOpenDirectThreadMarksRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u-a", "Avery")
	seedUser(t, s, "u-b", "Blake")
	seedUser(t, s, "u-c", "Corey")

	send := func(id, from, to, body string) {
		t.Helper()
		if err := s.InsertDirectMessage(ctx, DirectMessage{ID: id, SenderID: from, ReceiverID: to, Body: body}); err != nil {
			t.Fatalf("send %s: %v", id, err)
		}
	}
	send("m-1", "u-b", "u-a", "is this your backpack?")
	send("m-2", "u-a", "u-b", "yes!")
	send("m-3", "u-b", "u-a", "front desk then")
	send("m-4", "u-c", "u-a", "unrelated")

	if n, err := s.UnreadDirectCount(ctx, "u-a"); err != nil || n != 3 {
		t.Fatalf("unread before open: n=%d err=%v", n, err)
	}

	thread, err := s.OpenDirectThread(ctx, "u-a", "u-b")
	if err != nil {
		t.Fatalf("open thread: %v", err)
	}
	if len(thread) != 3 {
		t.Fatalf("thread length = %d, want 3", len(thread))
	}
	for i := 1; i < len(thread); i++ {
		if thread[i].CreatedAt.Before(thread[i-1].CreatedAt) {
			t.Fatal("thread not in ascending order")
		}
	}

	// Opening one thread consumed only that counterparty's unread.
	if n, _ := s.UnreadDirectCount(ctx, "u-a"); n != 1 {
		t.Fatalf("unread after open = %d, want 1", n)
	}

	convs, err := s.ListConversations(ctx, "u-a")
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("conversations = %d, want 2", len(convs))
	}
	if convs[0].OtherID != "u-c" {
		t.Fatalf("latest conversation = %q, want u-c", convs[0].OtherID)
	}
	if convs[0].UnreadCount != 1 || convs[1].UnreadCount != 0 {
		t.Fatalf("unread counts = %d,%d, want 1,0", convs[0].UnreadCount, convs[1].UnreadCount)
	}
	if convs[1].OtherID != "u-b" || convs[1].LastMessage != "front desk then" {
		t.Fatalf("conversation with u-b: %+v", convs[1])
	}
	if convs[1].LastSenderName != "Blake" {
		t.Fatalf("last sender = %q, want Blake", convs[1].LastSenderName)
	}
}

func TestInsertMessageKeepsCallerTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u-a", "Avery")
	seedUser(t, s, "u-b", "Blake")

	// Truncated to Postgres timestamp precision so the round trip compares
	// equal.
	sent := time.Now().Add(-time.Hour).Truncate(time.Microsecond)
	err := s.InsertDirectMessage(ctx, DirectMessage{
		ID: "m-ts", SenderID: "u-a", ReceiverID: "u-b", Body: "hi", CreatedAt: sent,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	thread, err := s.OpenDirectThread(ctx, "u-a", "u-b")
	if err != nil {
		t.Fatalf("open thread: %v", err)
	}
	if len(thread) != 1 {
		t.Fatalf("thread length = %d, want 1", len(thread))
	}
	if !thread[0].CreatedAt.Equal(sent) {
		t.Fatalf("stored createdAt = %v, want %v", thread[0].CreatedAt, sent)
	}
}
