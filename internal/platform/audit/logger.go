package audit

import (
	"context"
	"encoding/json"
	mathrand "math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"releaseguard/internal/pkg/parser"
	"releaseguard/internal/platform/models"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewID returns a lexicographically sortable id, so audit rows list in
// insertion order.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

type Entry struct {
	OrganizationID string
	UserID         string
	Action         string
	Outcome        string
	Metadata       map[string]interface{}
}

type Writer interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

type Logger struct {
	writer Writer
	now    func() time.Time
}

func NewLogger(w Writer) *Logger {
	return &Logger{writer: w, now: time.Now}
}

type requestInfoKey struct{}

type requestInfo struct {
	ip        string
	userAgent string
}

// WithRequest stores the caller's address and user agent for later entries.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{ip: ip, userAgent: r.UserAgent()})
}

// Record writes one entry. Audit failures are logged and never fail the flow
// being audited.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if l == nil || l.writer == nil {
		return
	}

	info, hasInfo := ctx.Value(requestInfoKey{}).(requestInfo)

	fields := e.Metadata
	if hasInfo {
		if client := parser.ParseUserAgent(info.userAgent); client.Known() {
			fields = make(map[string]interface{}, len(e.Metadata)+1)
			for k, v := range e.Metadata {
				fields[k] = v
			}
			fields["client"] = client
		}
	}

	meta := "{}"
	if len(fields) > 0 {
		if b, err := json.Marshal(fields); err == nil {
			meta = string(b)
		}
	}

	now := l.now()
	row := &models.AuditLog{
		ID:             NewID(now),
		OrganizationID: e.OrganizationID,
		UserID:         e.UserID,
		Action:         e.Action,
		Outcome:        e.Outcome,
		Metadata:       meta,
		CreatedAt:      now.UnixMilli(),
	}
	if hasInfo {
		row.IPAddress = info.ip
		row.UserAgent = info.userAgent
	}

	if err := l.writer.Create(ctx, row); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("action", e.Action).Msg("failed to write audit log")
	}
}
