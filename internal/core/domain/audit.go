package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Limits applied to client-supplied audit fields.
const (
	MaxAuditUsernameLen = 128
	MaxAuditRemoteIPLen = 64
	maxAuditResourceLen = 512
)

// AuditAction names a security-relevant operation.
type AuditAction string

const (
	AuditLogin        AuditAction = "login"
	AuditAuthenticate AuditAction = "authenticate"
	AuditAuthorize    AuditAction = "authorize"
	AuditUserCreate   AuditAction = "user.create"
	AuditBookCreate   AuditAction = "book.create"
	AuditBookUpdate   AuditAction = "book.update"
)

// AuditOutcome is the result recorded for an AuditAction.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailed  AuditOutcome = "failed"
	OutcomeDenied  AuditOutcome = "denied"
)

// AuditEvent is one entry of the security audit trail. It never carries
// credential material.
type AuditEvent struct {
	Username   string
	Action     AuditAction
	Outcome    AuditOutcome
	Resource   string // optional, e.g. "book:42"
	RemoteIP   string
	OccurredAt time.Time
}

// Sanitize makes the client-supplied fields safe to persist. Invalid UTF-8
// and NUL bytes become U+FFFD and each field is clipped to its limit.
func (e *AuditEvent) Sanitize() {
	e.Username = clip(e.Username, MaxAuditUsernameLen)
	e.RemoteIP = clip(e.RemoteIP, MaxAuditRemoteIPLen)
	e.Resource = clip(e.Resource, maxAuditResourceLen)
}

func clip(s string, limit int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.ReplaceAll(s, "\x00", "\uFFFD")
	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}
	return s
}
