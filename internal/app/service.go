package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"campusfind/internal/auth"
	"campusfind/internal/authpw"
	"campusfind/internal/claim"
	"campusfind/internal/config"
	"campusfind/internal/email"
	"campusfind/internal/export"
	"campusfind/internal/media"
	"campusfind/internal/metrics"
	"campusfind/internal/search"
	"campusfind/internal/store"
	"campusfind/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	IsAdmin      bool
	JTI          string
	ExpiresAt    time.Time
}

type CreateItemInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Location     string `json:"location"`
	Status       string `json:"status"`
	PhotoDataURL string `json:"photoDataUrl"`
}

type dataStore interface {
	InsertUser(context.Context, store.User) error
	GetUserByID(context.Context, string) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	ListItems(context.Context, string, string) ([]store.Item, error)
	GetItem(context.Context, string) (store.Item, error)
	InsertItem(context.Context, store.Item) error
	SetItemPhoto(context.Context, string, string) error
	DeleteItem(context.Context, string) (bool, error)
	RequestClaim(context.Context, string, string, string) (bool, error)
	ResolveClaim(context.Context, string, string) (bool, error)
	ListItemMessages(context.Context, string) ([]store.ItemMessage, error)
	InsertItemMessage(context.Context, store.ItemMessage) error
	InsertDirectMessage(context.Context, store.DirectMessage) error
	OpenDirectThread(context.Context, string, string) ([]store.DirectMessage, error)
	UnreadDirectCount(context.Context, string) (int, error)
	ListConversations(context.Context, string) ([]store.Conversation, error)
	Ping(ctx context.Context) error
}

// refreshStore holds refresh sessions. Redis is preferred; the Postgres
// store satisfies the same interface when Redis is not configured.
type refreshStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// Deps are the optional collaborators. Nil fields disable the feature they
// back, except Metrics which falls back to a no-op recorder.
type Deps struct {
	Sessions refreshStore
	Auth     *authpw.Service
	Search   *search.Service
	Media    *media.Store
	Email    *email.Service
	Exporter *export.Service
	Metrics  metrics.Recorder
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  refreshStore
	authpw    *authpw.Service
	search    *search.Service
	media     *media.Store
	email     *email.Service
	exporter  *export.Service
	metrics   metrics.Recorder
	sanitizer *bluemonday.Policy
	limiters  *rateLimiters
}

func New(cfg config.Config, dataStore *store.PostgresStore, deps Deps) *Service {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = dataStore
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		authpw:    deps.Auth,
		search:    deps.Search,
		media:     deps.Media,
		email:     deps.Email,
		exporter:  deps.Exporter,
		metrics:   recorder,
		sanitizer: bluemonday.StrictPolicy(),
		limiters:  newRateLimiters(cfg.MessageRatePerMin, cfg.MessageBurst),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ── Sessions ──

func (s *Service) Register(ctx context.Context, name, emailAddr, password string) (Session, error) {
	if s.authpw == nil {
		return Session{}, domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication service not configured", nil)
	}
	user, err := s.authpw.Register(ctx, authpw.RegisterRequest{Name: name, Email: emailAddr, Password: password})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, emailAddr, password string) (Session, error) {
	if s.authpw == nil {
		return Session{}, domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication service not configured", nil)
	}
	user, err := s.authpw.Login(ctx, emailAddr, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	found, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// Re-read the user so a changed admin flag takes effect on rotation.
	user, err := s.store.GetUserByID(ctx, found.ID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret),
		auth.NewClaims(user.ID, user.Name, user.Email, user.IsAdmin, jti, expiresAt))
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		Email:        user.Email,
		IsAdmin:      user.IsAdmin,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// RequestPasswordReset returns the raw reset token so the HTTP layer can
// expose it as a dev bypass when no SMTP server is configured. The token is
// empty when the address matches no account.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) (string, error) {
	if s.authpw == nil {
		return "", domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication service not configured", nil)
	}
	token, user, err := s.authpw.RequestPasswordReset(ctx, emailAddr)
	if err != nil {
		return "", err
	}
	if token != "" && s.SMTPConfigured() {
		resetURL := strings.TrimRight(s.cfg.AppBaseURL, "/") + "/reset-password?token=" + token
		go func() {
			if err := s.email.SendPasswordResetEmail(user.Email, user.Name, resetURL); err != nil {
				log.Printf("send password reset email to %s: %v", user.Email, err)
			}
		}()
	}
	return token, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.authpw == nil {
		return domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication service not configured", nil)
	}
	return s.authpw.ResetPassword(ctx, token, newPassword)
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// ── Items ──

func (s *Service) ListItems(ctx context.Context, status, query string) (map[string]any, error) {
	if status != "" && status != "lost" && status != "found" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be 'lost' or 'found'", nil)
	}
	items, err := s.store.ListItems(ctx, status, query)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, s.itemPayload(ctx, item))
	}
	return map[string]any{"items": payloads}, nil
}

func (s *Service) GetItem(ctx context.Context, itemID string) (map[string]any, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"item": s.itemPayload(ctx, item)}, nil
}

func (s *Service) CreateItem(ctx context.Context, session Session, input CreateItemInput) (map[string]any, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if input.Status != "lost" && input.Status != "found" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be 'lost' or 'found'", nil)
	}
	if input.Status == "lost" && session.UserID == "" {
		return nil, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to file a lost report", nil)
	}

	photoKey := ""
	if input.PhotoDataURL != "" {
		if s.media == nil {
			return nil, domainError(http.StatusServiceUnavailable, "PHOTO_UNAVAILABLE", "Photo storage is not configured", nil)
		}
		key, err := s.media.PutDataURL(ctx, input.PhotoDataURL)
		if err != nil {
			if errors.Is(err, media.ErrBadDataURL) {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "photo must be a base64 image data URL", nil)
			}
			return nil, err
		}
		photoKey = key
	}

	item := store.Item{
		ID:          util.NewID("item"),
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Location:    strings.TrimSpace(input.Location),
		Status:      input.Status,
		PhotoKey:    photoKey,
		ReportedBy:  session.UserID,
		ClaimStatus: string(claim.StatusNone),
	}
	if err := s.store.InsertItem(ctx, item); err != nil {
		return nil, err
	}
	s.indexItem(item)
	return map[string]any{"item": s.itemPayload(ctx, item)}, nil
}

func (s *Service) DeleteItem(ctx context.Context, session Session, itemID string) error {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !session.IsAdmin && (item.ReportedBy == "" || item.ReportedBy != session.UserID) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the reporter or an admin can delete an item", nil)
	}
	deleted, err := s.store.DeleteItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Item not found", nil)
	}
	if item.PhotoKey != "" && s.media != nil {
		if err := s.media.Remove(ctx, item.PhotoKey); err != nil {
			log.Printf("remove photo %s: %v", item.PhotoKey, err)
		}
	}
	if s.search != nil {
		s.search.DeleteItem(itemID)
	}
	return nil
}

// SetItemPhoto replaces an item's photo. The old object is removed after
// the new key is stored.
func (s *Service) SetItemPhoto(ctx context.Context, session Session, itemID, dataURL string) (map[string]any, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !session.IsAdmin && (item.ReportedBy == "" || item.ReportedBy != session.UserID) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only the reporter or an admin can change the photo", nil)
	}
	if s.media == nil {
		return nil, domainError(http.StatusServiceUnavailable, "PHOTO_UNAVAILABLE", "Photo storage is not configured", nil)
	}
	key, err := s.media.PutDataURL(ctx, dataURL)
	if err != nil {
		if errors.Is(err, media.ErrBadDataURL) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "photo must be a base64 image data URL", nil)
		}
		return nil, err
	}
	if err := s.store.SetItemPhoto(ctx, itemID, key); err != nil {
		return nil, err
	}
	if item.PhotoKey != "" {
		if err := s.media.Remove(ctx, item.PhotoKey); err != nil {
			log.Printf("remove photo %s: %v", item.PhotoKey, err)
		}
	}
	item.PhotoKey = key
	return map[string]any{"item": s.itemPayload(ctx, item)}, nil
}

// ── Users ──

func (s *Service) GetUser(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": map[string]any{
		"id":      user.ID,
		"name":    user.Name,
		"isAdmin": user.IsAdmin,
	}}, nil
}

// ── Claims ──

func (s *Service) RequestClaim(ctx context.Context, session Session, itemID, note string) (map[string]any, error) {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	ok, err := s.store.RequestClaim(ctx, itemID, session.UserID, strings.TrimSpace(note))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainError(http.StatusConflict, "CLAIM_ALREADY_APPROVED", "Item claim is already approved", nil)
	}
	s.metrics.RecordClaimRequested()

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	s.indexItem(item)
	return map[string]any{"item": s.itemPayload(ctx, item)}, nil
}

func (s *Service) ResolveClaim(ctx context.Context, session Session, itemID, rawAction string) (map[string]any, error) {
	if !session.IsAdmin {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only admins can resolve claims", nil)
	}
	action, ok := claim.ParseAction(rawAction)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "action must be 'approve' or 'reject'", nil)
	}
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	resolved, err := s.store.ResolveClaim(ctx, itemID, string(action.Resolve()))
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, domainError(http.StatusConflict, "CLAIM_NOT_PENDING", "Claim is not pending", nil)
	}
	s.metrics.RecordClaimResolved(string(action.Resolve()))

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	s.notifyClaimResolved(ctx, item)
	s.indexItem(item)
	return map[string]any{"item": s.itemPayload(ctx, item)}, nil
}

func (s *Service) notifyClaimResolved(ctx context.Context, item store.Item) {
	if !s.SMTPConfigured() || item.ClaimedByID == "" {
		return
	}
	claimant, err := s.store.GetUserByID(ctx, item.ClaimedByID)
	if err != nil || claimant.Email == "" {
		return
	}
	outcome := "approved"
	if claim.NormalizeStatus(item.ClaimStatus) == claim.StatusRejected {
		outcome = "rejected"
	}
	go func() {
		if err := s.email.SendClaimResolvedEmail(claimant.Email, claimant.Name, item.Title, outcome); err != nil {
			log.Printf("send claim resolved email to %s: %v", claimant.Email, err)
		}
	}()
}

// ── Item threads ──

func (s *Service) ItemThread(ctx context.Context, session Session, itemID string) (map[string]any, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	id := sessionIdentity(session)
	if err := accessError(claim.CanAccess(threadItem(item), id, claim.IntentRead)); err != nil {
		return nil, err
	}
	messages, err := s.store.ListItemMessages(ctx, itemID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(messages))
	for _, message := range messages {
		payloads = append(payloads, itemMessagePayload(message))
	}
	return map[string]any{
		"messages": payloads,
		"canPost":  claim.CanAccess(threadItem(item), id, claim.IntentWrite) == claim.Allow,
	}, nil
}

func (s *Service) PostItemMessage(ctx context.Context, session Session, itemID, body string) (map[string]any, error) {
	body, err := s.sanitizeBody(body)
	if err != nil {
		return nil, err
	}
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := accessError(claim.CanAccess(threadItem(item), sessionIdentity(session), claim.IntentWrite)); err != nil {
		return nil, err
	}
	if err := s.chargeSender(session.UserID); err != nil {
		return nil, err
	}

	message := store.ItemMessage{
		ID:         util.NewID("msg"),
		ItemID:     itemID,
		SenderID:   session.UserID,
		SenderName: session.UserName,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	if err := s.store.InsertItemMessage(ctx, message); err != nil {
		return nil, err
	}
	s.metrics.RecordMessagePosted("item")
	return map[string]any{"message": itemMessagePayload(message)}, nil
}

// ── Direct messages ──

func (s *Service) SendDirectMessage(ctx context.Context, session Session, otherID, body string) (map[string]any, error) {
	body, err := s.sanitizeBody(body)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, otherID); err != nil {
		return nil, err
	}
	if err := s.chargeSender(session.UserID); err != nil {
		return nil, err
	}

	message := store.DirectMessage{
		ID:         util.NewID("dm"),
		SenderID:   session.UserID,
		ReceiverID: otherID,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	if err := s.store.InsertDirectMessage(ctx, message); err != nil {
		return nil, err
	}
	s.metrics.RecordMessagePosted("direct")
	return map[string]any{"message": directMessagePayload(message)}, nil
}

// OpenDirectThread returns the exchange with one counterparty and marks
// their messages read as a side effect of the read.
func (s *Service) OpenDirectThread(ctx context.Context, session Session, otherID string) (map[string]any, error) {
	other, err := s.store.GetUserByID(ctx, otherID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.OpenDirectThread(ctx, session.UserID, otherID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(messages))
	for _, message := range messages {
		payloads = append(payloads, directMessagePayload(message))
	}
	return map[string]any{
		"otherUser": map[string]any{"id": other.ID, "name": other.Name},
		"messages":  payloads,
	}, nil
}

func (s *Service) Conversations(ctx context.Context, session Session) (map[string]any, error) {
	conversations, err := s.store.ListConversations(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(conversations))
	for _, conversation := range conversations {
		payloads = append(payloads, map[string]any{
			"otherId":     conversation.OtherID,
			"otherName":   conversation.OtherName,
			"lastMessage": conversation.LastMessage,
			"lastAt":      conversation.LastAt,
			"lastSender":  conversation.LastSenderName,
			"unreadCount": conversation.UnreadCount,
		})
	}
	return map[string]any{"conversations": payloads}, nil
}

func (s *Service) UnreadCount(ctx context.Context, session Session) (map[string]any, error) {
	count, err := s.store.UnreadDirectCount(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"unread": count}, nil
}

// ── Search ──

func (s *Service) SearchItems(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// ── Export ──

func (s *Service) ExportItem(ctx context.Context, req export.Request) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	return s.exporter.Export(ctx, req)
}

// ── Helpers ──

// sanitizeBody strips markup from a message body. Validation runs before
// any lookups or policy checks so a bad body always reads as a bad body.
func (s *Service) sanitizeBody(body string) (string, error) {
	body = strings.TrimSpace(s.sanitizer.Sanitize(body))
	if body == "" {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message body is required", nil)
	}
	return body, nil
}

// chargeSender counts one message against the sender's rate budget. Charged
// after authorization so denied requests do not consume budget.
func (s *Service) chargeSender(userID string) error {
	if !s.limiters.Allow(userID) {
		s.metrics.RecordRateLimited()
		return domainError(http.StatusTooManyRequests, "RATE_LIMITED", "Too many messages, slow down", nil)
	}
	return nil
}

func (s *Service) indexItem(item store.Item) {
	if s.search == nil {
		return
	}
	s.search.IndexItem(search.ItemRecord{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Location:    item.Location,
		Status:      item.Status,
		ClaimStatus: string(claim.NormalizeStatus(item.ClaimStatus)),
	})
}

func (s *Service) photoURL(ctx context.Context, key string) string {
	if key == "" || s.media == nil {
		return ""
	}
	url, err := s.media.PresignedURL(ctx, key, 15*time.Minute)
	if err != nil {
		log.Printf("presign photo %s: %v", key, err)
		return ""
	}
	return url
}

func (s *Service) itemPayload(ctx context.Context, item store.Item) map[string]any {
	status := claim.NormalizeStatus(item.ClaimStatus)
	payload := map[string]any{
		"id":          item.ID,
		"title":       item.Title,
		"description": item.Description,
		"category":    item.Category,
		"location":    item.Location,
		"status":      item.Status,
		"reportedBy":  item.ReportedBy,
		"claimStatus": string(status),
		"claimed":     claim.Claimed(status),
		"claimNote":   item.ClaimNote,
		"createdAt":   item.CreatedAt,
		"updatedAt":   item.UpdatedAt,
	}
	if item.ClaimedByID != "" {
		payload["claimedById"] = item.ClaimedByID
	}
	if item.ClaimedByName != "" {
		payload["claimedByName"] = item.ClaimedByName
	}
	if url := s.photoURL(ctx, item.PhotoKey); url != "" {
		payload["photoUrl"] = url
	}
	return payload
}

func itemMessagePayload(message store.ItemMessage) map[string]any {
	return map[string]any{
		"id":         message.ID,
		"itemId":     message.ItemID,
		"senderId":   message.SenderID,
		"senderName": message.SenderName,
		"body":       message.Body,
		"createdAt":  message.CreatedAt,
	}
}

func directMessagePayload(message store.DirectMessage) map[string]any {
	return map[string]any{
		"id":         message.ID,
		"senderId":   message.SenderID,
		"receiverId": message.ReceiverID,
		"body":       message.Body,
		"read":       message.Read,
		"createdAt":  message.CreatedAt,
	}
}

func sessionIdentity(session Session) claim.Identity {
	return claim.Identity{
		ID:      session.UserID,
		Name:    session.UserName,
		Email:   session.Email,
		IsAdmin: session.IsAdmin,
	}
}

func threadItem(item store.Item) claim.ThreadItem {
	return claim.ThreadItem{
		ReportedBy: item.ReportedBy,
		Claimer:    claim.NewClaimer(item.ClaimedByID, item.ClaimedByName),
	}
}

func accessError(decision claim.Decision) error {
	switch decision {
	case claim.Allow:
		return nil
	case claim.DenyUnauthenticated:
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to view this conversation", nil)
	default:
		return domainError(http.StatusForbidden, "FORBIDDEN", "This conversation is restricted to the reporter and the claimer", nil)
	}
}
