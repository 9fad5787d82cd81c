package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"campusfind/internal/authpw"
	"campusfind/internal/config"
	"campusfind/internal/metrics"
	"campusfind/internal/store"
)

type fakeStore struct {
	insertUserFn          func(context.Context, store.User) error
	getUserByIDFn         func(context.Context, string) (store.User, error)
	getUserByEmailFn      func(context.Context, string) (store.User, error)
	isAccessTokenRevoked  func(context.Context, string) (bool, error)
	listItemsFn           func(context.Context, string, string) ([]store.Item, error)
	getItemFn             func(context.Context, string) (store.Item, error)
	insertItemFn          func(context.Context, store.Item) error
	deleteItemFn          func(context.Context, string) (bool, error)
	requestClaimFn        func(context.Context, string, string, string) (bool, error)
	resolveClaimFn        func(context.Context, string, string) (bool, error)
	listItemMessagesFn    func(context.Context, string) ([]store.ItemMessage, error)
	insertItemMessageFn   func(context.Context, store.ItemMessage) error
	insertDirectMessageFn func(context.Context, store.DirectMessage) error
	openDirectThreadFn    func(context.Context, string, string) ([]store.DirectMessage, error)
	unreadDirectCountFn   func(context.Context, string) (int, error)
	listConversationsFn   func(context.Context, string) ([]store.Conversation, error)
	lookupRefreshFn       func(context.Context, string) (store.User, error)
	pingFn                func(context.Context) error
}

func (f *fakeStore) InsertUser(ctx context.Context, user store.User) error {
	if f.insertUserFn != nil {
		return f.insertUserFn(ctx, user)
	}
	return nil
}
func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) UpdateUserPassword(context.Context, string, string) error { return nil }
func (f *fakeStore) SaveRefreshSession(context.Context, string, string, time.Time) error {
	return nil
}
func (f *fakeStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	if f.lookupRefreshFn != nil {
		return f.lookupRefreshFn(ctx, tokenHash)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) RevokeRefreshSession(context.Context, string) error { return nil }
func (f *fakeStore) RevokeAccessToken(context.Context, string, time.Time) error {
	return nil
}
func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.isAccessTokenRevoked != nil {
		return f.isAccessTokenRevoked(ctx, jti)
	}
	return false, nil
}
func (f *fakeStore) SavePasswordReset(context.Context, string, string, time.Time) error {
	return nil
}
func (f *fakeStore) ConsumePasswordReset(context.Context, string) (store.User, error) {
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) ListItems(ctx context.Context, status, query string) ([]store.Item, error) {
	if f.listItemsFn != nil {
		return f.listItemsFn(ctx, status, query)
	}
	return nil, nil
}
func (f *fakeStore) GetItem(ctx context.Context, itemID string) (store.Item, error) {
	if f.getItemFn != nil {
		return f.getItemFn(ctx, itemID)
	}
	return store.Item{}, sql.ErrNoRows
}
func (f *fakeStore) InsertItem(ctx context.Context, item store.Item) error {
	if f.insertItemFn != nil {
		return f.insertItemFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) SetItemPhoto(context.Context, string, string) error { return nil }
func (f *fakeStore) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	if f.deleteItemFn != nil {
		return f.deleteItemFn(ctx, itemID)
	}
	return false, nil
}
func (f *fakeStore) RequestClaim(ctx context.Context, itemID, claimerID, note string) (bool, error) {
	if f.requestClaimFn != nil {
		return f.requestClaimFn(ctx, itemID, claimerID, note)
	}
	return false, nil
}
func (f *fakeStore) ResolveClaim(ctx context.Context, itemID, claimStatus string) (bool, error) {
	if f.resolveClaimFn != nil {
		return f.resolveClaimFn(ctx, itemID, claimStatus)
	}
	return false, nil
}
func (f *fakeStore) ListItemMessages(ctx context.Context, itemID string) ([]store.ItemMessage, error) {
	if f.listItemMessagesFn != nil {
		return f.listItemMessagesFn(ctx, itemID)
	}
	return nil, nil
}
func (f *fakeStore) InsertItemMessage(ctx context.Context, message store.ItemMessage) error {
	if f.insertItemMessageFn != nil {
		return f.insertItemMessageFn(ctx, message)
	}
	return nil
}
func (f *fakeStore) InsertDirectMessage(ctx context.Context, message store.DirectMessage) error {
	if f.insertDirectMessageFn != nil {
		return f.insertDirectMessageFn(ctx, message)
	}
	return nil
}
func (f *fakeStore) OpenDirectThread(ctx context.Context, userID, otherID string) ([]store.DirectMessage, error) {
	if f.openDirectThreadFn != nil {
		return f.openDirectThreadFn(ctx, userID, otherID)
	}
	return nil, nil
}
func (f *fakeStore) UnreadDirectCount(ctx context.Context, userID string) (int, error) {
	if f.unreadDirectCountFn != nil {
		return f.unreadDirectCountFn(ctx, userID)
	}
	return 0, nil
}
func (f *fakeStore) ListConversations(ctx context.Context, userID string) ([]store.Conversation, error) {
	if f.listConversationsFn != nil {
		return f.listConversationsFn(ctx, userID)
	}
	return nil, nil
}
func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		store:     fs,
		sessions:  fs,
		authpw:    authpw.NewService(fs),
		metrics:   metrics.Nop{},
		sanitizer: bluemonday.StrictPolicy(),
		limiters:  newRateLimiters(600, 100),
	}
}

func userSession(id string) Session {
	return Session{UserID: id, UserName: "User " + id, Email: id + "@campus.edu"}
}

func adminSession() Session {
	return Session{UserID: "u-admin", UserName: "Admin", Email: "admin@campus.edu", IsAdmin: true}
}

func assertDomainCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != status || domainErr.Code != code {
		t.Fatalf("expected %d %s, got %d %s", status, code, domainErr.Status, domainErr.Code)
	}
}

func TestRequestClaimConflictWhenApproved(t *testing.T) {
	fs := &fakeStore{
		getItemFn: func(_ context.Context, itemID string) (store.Item, error) {
			return store.Item{ID: itemID, Title: "Backpack", ClaimStatus: "approved"}, nil
		},
		requestClaimFn: func(context.Context, string, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.RequestClaim(context.Background(), userSession("u-1"), "item-1", "mine")
	assertDomainCode(t, err, http.StatusConflict, "CLAIM_ALREADY_APPROVED")
}

func TestRequestClaimUnknownItemIsNotFound(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.RequestClaim(context.Background(), userSession("u-1"), "missing", "")
	if !store.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolveClaimRequiresAdmin(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.ResolveClaim(context.Background(), userSession("u-1"), "item-1", "approve")
	assertDomainCode(t, err, http.StatusForbidden, "FORBIDDEN")
}

func TestResolveClaimRejectsUnknownAction(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.ResolveClaim(context.Background(), adminSession(), "item-1", "archive")
	assertDomainCode(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestResolveClaimConflictWhenNotPending(t *testing.T) {
	fs := &fakeStore{
		getItemFn: func(_ context.Context, itemID string) (store.Item, error) {
			return store.Item{ID: itemID, Title: "Backpack", ClaimStatus: "none"}, nil
		},
		resolveClaimFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.ResolveClaim(context.Background(), adminSession(), "item-1", "approve")
	assertDomainCode(t, err, http.StatusConflict, "CLAIM_NOT_PENDING")
}

func TestResolveClaimWritesResolvedStatus(t *testing.T) {
	var gotStatus string
	fs := &fakeStore{
		getItemFn: func(_ context.Context, itemID string) (store.Item, error) {
			return store.Item{ID: itemID, Title: "Backpack", ClaimStatus: "pending", ClaimedByID: "u-clm"}, nil
		},
		resolveClaimFn: func(_ context.Context, _, claimStatus string) (bool, error) {
			gotStatus = claimStatus
			return true, nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.ResolveClaim(context.Background(), adminSession(), "item-1", "reject"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gotStatus != "rejected" {
		t.Fatalf("expected rejected written to store, got %q", gotStatus)
	}
}

func TestPostItemMessageSanitizesBody(t *testing.T) {
	var inserted store.ItemMessage
	fs := &fakeStore{
		getItemFn: func(_ context.Context, itemID string) (store.Item, error) {
			return store.Item{ID: itemID, ReportedBy: "u-rep"}, nil
		},
		insertItemMessageFn: func(_ context.Context, message store.ItemMessage) error {
			inserted = message
			return nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.PostItemMessage(context.Background(), userSession("u-1"), "item-1",
		`<script>alert("x")</script>is this a blue backpack?`)
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if strings.Contains(inserted.Body, "<script>") {
		t.Fatalf("expected script tags stripped, got %q", inserted.Body)
	}
	if !strings.Contains(inserted.Body, "is this a blue backpack?") {
		t.Fatalf("expected text kept, got %q", inserted.Body)
	}
}

func TestPostItemMessageRejectsBodyThatSanitizesToNothing(t *testing.T) {
	fs := &fakeStore{
		getItemFn: func(_ context.Context, itemID string) (store.Item, error) {
			return store.Item{ID: itemID, ReportedBy: "u-rep"}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.PostItemMessage(context.Background(), userSession("u-1"), "item-1", `<img src="x">`)
	assertDomainCode(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestPostItemMessageEmptyBodyBeatsPolicyDenial(t *testing.T) {
	fs := &fakeStore{
		getItemFn: func(_ context.Context, itemID string) (store.Item, error) {
			return store.Item{ID: itemID, ReportedBy: "u-rep", ClaimStatus: "pending", ClaimedByID: "u-clm"}, nil
		},
	}
	svc := newTestService(fs)

	// An outsider would be denied, but an empty body reads as a bad request
	// regardless of who sent it.
	_, err := svc.PostItemMessage(context.Background(), userSession("u-outsider"), "item-1", "   ")
	assertDomainCode(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestPostItemMessageRateLimited(t *testing.T) {
	fs := &fakeStore{
		getItemFn: func(_ context.Context, itemID string) (store.Item, error) {
			return store.Item{ID: itemID, ReportedBy: "u-rep"}, nil
		},
	}
	svc := newTestService(fs)
	svc.limiters = newRateLimiters(1, 2)

	session := userSession("u-1")
	for i := 0; i < 2; i++ {
		if _, err := svc.PostItemMessage(context.Background(), session, "item-1", "hello"); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	_, err := svc.PostItemMessage(context.Background(), session, "item-1", "hello again")
	assertDomainCode(t, err, http.StatusTooManyRequests, "RATE_LIMITED")

	// Another user has their own budget.
	if _, err := svc.PostItemMessage(context.Background(), userSession("u-2"), "item-1", "hi"); err != nil {
		t.Fatalf("other user should not share the limiter: %v", err)
	}
}

func TestSendDirectMessageToSelfAllowed(t *testing.T) {
	inserted := map[string]store.DirectMessage{}
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, id string) (store.User, error) {
			if id == "u-1" {
				return store.User{ID: "u-1", Name: "Sam"}, nil
			}
			return store.User{}, sql.ErrNoRows
		},
		insertDirectMessageFn: func(_ context.Context, m store.DirectMessage) error {
			inserted[m.ID] = m
			return nil
		},
	}
	svc := newTestService(fs)

	// Users can leave notes in their own thread.
	payload, err := svc.SendDirectMessage(context.Background(), userSession("u-1"), "u-1", "hi me")
	if err != nil {
		t.Fatalf("SendDirectMessage to self: %v", err)
	}
	message := payload["message"].(map[string]any)
	if message["receiverId"] != "u-1" || message["senderId"] != "u-1" {
		t.Fatalf("unexpected routing: %v", message)
	}
	if len(inserted) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(inserted))
	}
}

func TestSendDirectMessageUnknownReceiver(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SendDirectMessage(context.Background(), userSession("u-1"), "u-ghost", "hello")
	if !store.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateItemValidatesStatus(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.CreateItem(context.Background(), userSession("u-1"), CreateItemInput{Title: "Keys", Status: "misplaced"})
	assertDomainCode(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	_, err = svc.CreateItem(context.Background(), userSession("u-1"), CreateItemInput{Status: "lost"})
	assertDomainCode(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestCreateItemAnonymousReports(t *testing.T) {
	svc := newTestService(&fakeStore{})

	// Found reports may come from walk-ups without an account.
	if _, err := svc.CreateItem(context.Background(), Session{}, CreateItemInput{Title: "Umbrella", Status: "found"}); err != nil {
		t.Fatalf("anonymous found report: %v", err)
	}

	// Lost reports need a reachable owner behind them.
	_, err := svc.CreateItem(context.Background(), Session{}, CreateItemInput{Title: "Wallet", Status: "lost"})
	assertDomainCode(t, err, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestDeleteItemOnlyReporterOrAdmin(t *testing.T) {
	deleted := false
	fs := &fakeStore{
		getItemFn: func(_ context.Context, itemID string) (store.Item, error) {
			return store.Item{ID: itemID, ReportedBy: "u-rep"}, nil
		},
		deleteItemFn: func(context.Context, string) (bool, error) {
			deleted = true
			return true, nil
		},
	}
	svc := newTestService(fs)

	err := svc.DeleteItem(context.Background(), userSession("u-other"), "item-1")
	assertDomainCode(t, err, http.StatusForbidden, "FORBIDDEN")
	if deleted {
		t.Fatalf("delete should not have reached the store")
	}

	if err := svc.DeleteItem(context.Background(), userSession("u-rep"), "item-1"); err != nil {
		t.Fatalf("reporter delete: %v", err)
	}
	if !deleted {
		t.Fatalf("expected delete to reach the store")
	}
}

func TestDeleteAnonymousItemRequiresAdmin(t *testing.T) {
	fs := &fakeStore{
		getItemFn: func(_ context.Context, itemID string) (store.Item, error) {
			return store.Item{ID: itemID}, nil
		},
		deleteItemFn: func(context.Context, string) (bool, error) { return true, nil },
	}
	svc := newTestService(fs)

	err := svc.DeleteItem(context.Background(), userSession("u-1"), "item-1")
	assertDomainCode(t, err, http.StatusForbidden, "FORBIDDEN")

	if err := svc.DeleteItem(context.Background(), adminSession(), "item-1"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestRefreshRereadsUserFromStore(t *testing.T) {
	fs := &fakeStore{
		lookupRefreshFn: func(context.Context, string) (store.User, error) {
			// Redis keeps only the user id with the token.
			return store.User{ID: "u-1"}, nil
		},
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, Name: "Robin", Email: "robin@campus.edu", IsAdmin: true}, nil
		},
	}
	svc := newTestService(fs)

	session, err := svc.Refresh(context.Background(), "raw-refresh-token")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if session.UserName != "Robin" || !session.IsAdmin {
		t.Fatalf("expected principal re-read from store, got %+v", session)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatalf("expected rotated tokens")
	}
}
