// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/dalemusser/membersonly/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, signup, membership).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for board events (message posted, message deleted).
	// Same values as Auth.
	Admin string
}

// EventStore persists audit events. *audit.Store satisfies it.
type EventStore interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via EventStore) and/or structured logs (via zap).
type Logger struct {
	store  EventStore
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store EventStore, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// clientIP returns the host part of RemoteAddr. The router runs chi's
// RealIP middleware first, so proxy headers are already folded in.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers in tests can leave it unset.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryBoard:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// oidPtr converts a hex id to a pointer, or nil when it does not parse.
func oidPtr(hex string) *primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &oid
}

func (l *Logger) base(r *http.Request, category, eventType string, success bool) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	if l == nil {
		return
	}
	ev := l.base(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	ev.UserID = &userID
	ev.Details = map[string]string{"email": email}
	l.Log(ctx, ev)
}

// LoginFailedUserNotFound logs a failed login for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	if l == nil {
		return
	}
	ev := l.base(r, audit.CategoryAuth, audit.EventLoginFailedUserNotFound, false)
	ev.FailureReason = "user not found"
	ev.Details = map[string]string{"attempted_email": attemptedEmail}
	l.Log(ctx, ev)
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	if l == nil {
		return
	}
	ev := l.base(r, audit.CategoryAuth, audit.EventLoginFailedWrongPassword, false)
	ev.UserID = &userID
	ev.FailureReason = "wrong password"
	ev.Details = map[string]string{"email": email}
	l.Log(ctx, ev)
}

// Logout logs a user logout. userIDStr comes from the session and may be empty.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	if l == nil {
		return
	}
	ev := l.base(r, audit.CategoryAuth, audit.EventLogout, true)
	ev.UserID = oidPtr(userIDStr)
	l.Log(ctx, ev)
}

// UserSignedUp logs account creation.
func (l *Logger) UserSignedUp(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string, isAdmin bool) {
	if l == nil {
		return
	}
	ev := l.base(r, audit.CategoryAuth, audit.EventUserSignedUp, true)
	ev.UserID = &userID
	ev.Details = map[string]string{
		"email":    email,
		"is_admin": strconv.FormatBool(isAdmin),
	}
	l.Log(ctx, ev)
}

// MembershipGranted logs a successful join.
func (l *Logger) MembershipGranted(ctx context.Context, r *http.Request, userIDStr string) {
	if l == nil {
		return
	}
	ev := l.base(r, audit.CategoryAuth, audit.EventMembershipGranted, true)
	ev.UserID = oidPtr(userIDStr)
	l.Log(ctx, ev)
}

// MembershipFailed logs a rejected join attempt.
func (l *Logger) MembershipFailed(ctx context.Context, r *http.Request, userIDStr, reason string) {
	if l == nil {
		return
	}
	ev := l.base(r, audit.CategoryAuth, audit.EventMembershipFailed, false)
	ev.UserID = oidPtr(userIDStr)
	ev.FailureReason = reason
	l.Log(ctx, ev)
}

// --- Board Events ---

// MessageCreated logs a new post.
func (l *Logger) MessageCreated(ctx context.Context, r *http.Request, authorID, messageID primitive.ObjectID) {
	if l == nil {
		return
	}
	ev := l.base(r, audit.CategoryBoard, audit.EventMessageCreated, true)
	ev.ActorID = &authorID
	ev.Details = map[string]string{"message_id": messageID.Hex()}
	l.Log(ctx, ev)
}

// MessageDeleted logs an admin delete. removed reports whether a document
// was actually deleted.
func (l *Logger) MessageDeleted(ctx context.Context, r *http.Request, actorIDStr, messageID string, removed bool) {
	if l == nil {
		return
	}
	ev := l.base(r, audit.CategoryBoard, audit.EventMessageDeleted, true)
	ev.ActorID = oidPtr(actorIDStr)
	ev.Details = map[string]string{
		"message_id": messageID,
		"removed":    strconv.FormatBool(removed),
	}
	l.Log(ctx, ev)
}
