package postback

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"surveypulse/internal/model"
	"surveypulse/internal/observability"
)

// ShareStore reads and updates postback shares. Not-found is (nil, nil).
type ShareStore interface {
	GetByUniqueID(ctx context.Context, uniqueID string) (*model.PostbackShare, error)
	// RecordUsage atomically increments usage_count and sets last_used and last_payload.
	RecordUsage(ctx context.Context, uniqueID string, payload map[string]string, at time.Time) (*model.PostbackShare, error)
}

// InboundMeta describes the inbound HTTP call.
type InboundMeta struct {
	Method     string
	URL        string
	UserAgent  string
	Referer    string
	RemoteAddr string
}

// ReceiveResult is the HTTP-like outcome of one inbound call.
type ReceiveResult struct {
	StatusCode     int               `json:"-"`
	Status         string            `json:"status"`
	Message        string            `json:"message"`
	ThirdPartyName string            `json:"thirdPartyName,omitempty"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	UsageCount     int64             `json:"usageCount,omitempty"`
	Sender         string            `json:"-"`
}

// Receiver handles callbacks from external parties at their share URL.
type Receiver struct {
	shares ShareStore
	audit  AuditSink
	logger *slog.Logger
	now    func() time.Time
}

// NewReceiver creates a Receiver.
func NewReceiver(shares ShareStore, audit AuditSink, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{shares: shares, audit: audit, logger: logger, now: time.Now}
}

// Receive matches uniqueID to a share and records the call. Unknown or
// revoked shares yield 404, store failures 500; every call is audited.
func (r *Receiver) Receive(ctx context.Context, uniqueID string, params url.Values, meta InboundMeta) (res ReceiveResult) {
	raw := flatten(params)
	entry, sender := inboundEntry(raw, meta)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("inbound postback panicked", "unique_id", uniqueID, "panic", rec)
			res = ReceiveResult{StatusCode: http.StatusInternalServerError, Status: "error", Message: "internal error"}
			entry.Error = fmt.Sprintf("internal_error: %v", rec)
		}
		res.Sender = sender
		r.record(entry, res.StatusCode)
	}()

	share, err := r.shares.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		r.logger.Error("share lookup failed", "unique_id", uniqueID, "error", err)
		entry.Error = "lookup_failed"
		return ReceiveResult{StatusCode: http.StatusInternalServerError, Status: "error", Message: "internal error"}
	}
	if share == nil || share.Status != model.StatusActive {
		r.logger.Info("inbound postback for unknown share", "unique_id", uniqueID, "sender", sender)
		entry.Error = "share_not_found"
		return ReceiveResult{StatusCode: http.StatusNotFound, Status: "error", Message: "postback share not found"}
	}

	entry.ShareID = share.UniquePostbackID
	entry.RecipientName = share.ThirdPartyName
	fields := ExtractFields(share, params)
	entry.Parameters = fields

	updated, err := r.shares.RecordUsage(ctx, share.UniquePostbackID, raw, r.now())
	if err != nil {
		r.logger.Error("share usage update failed", "unique_id", uniqueID, "error", err)
		entry.Error = "update_failed"
		return ReceiveResult{StatusCode: http.StatusInternalServerError, Status: "error", Message: "internal error"}
	}
	if updated == nil {
		// Deleted between lookup and update.
		entry.Error = "share_not_found"
		return ReceiveResult{StatusCode: http.StatusNotFound, Status: "error", Message: "postback share not found"}
	}

	r.logger.Info("inbound postback received",
		"unique_id", uniqueID,
		"third_party", share.ThirdPartyName,
		"sender", sender,
		"usage_count", updated.UsageCount,
	)
	return ReceiveResult{
		StatusCode:     http.StatusOK,
		Status:         "success",
		Message:        "postback received",
		ThirdPartyName: share.ThirdPartyName,
		Parameters:     fields,
		UsageCount:     updated.UsageCount,
	}
}

// Reject records an inbound call whose body could not be parsed. params
// holds whatever was readable, usually the query string.
func (r *Receiver) Reject(uniqueID string, params url.Values, meta InboundMeta, cause error) ReceiveResult {
	entry, sender := inboundEntry(flatten(params), meta)
	entry.Error = "invalid_body"
	r.logger.Info("inbound postback rejected", "unique_id", uniqueID, "sender", sender, "error", cause)

	res := ReceiveResult{StatusCode: http.StatusBadRequest, Status: "error", Message: "invalid postback body", Sender: sender}
	r.record(entry, res.StatusCode)
	return res
}

func inboundEntry(raw map[string]string, meta InboundMeta) (model.AuditLogEntry, string) {
	sender := IdentifySender(meta.UserAgent, meta.Referer, firstOf(raw, FieldTransactionID, "txid", "tid"))
	return model.AuditLogEntry{
		Type:          model.AuditInbound,
		RecipientKind: "share",
		RecipientName: sender,
		Sender:        sender,
		URL:           meta.URL,
		Method:        meta.Method,
		Parameters:    raw,
	}, sender
}

func (r *Receiver) record(entry model.AuditLogEntry, statusCode int) {
	entry.StatusCode = statusCode
	entry.Status = model.AuditFailure
	if statusCode == http.StatusOK {
		entry.Status = model.AuditSuccess
	}
	entry.Timestamp = r.now()
	observability.InboundPostbacks.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	if r.audit != nil {
		r.audit.Append(entry)
	}
}

// ExtractFields reads the standard fields from params under the names the
// share assigned them. Disabled fields are ignored; empty values are dropped.
func ExtractFields(share *model.PostbackShare, params url.Values) map[string]string {
	out := make(map[string]string, len(StandardFields))
	for _, field := range StandardFields {
		name := field
		if p, ok := share.Parameters[field]; ok {
			if !p.Enabled {
				continue
			}
			if p.CustomName != "" {
				name = p.CustomName
			}
		}
		v := params.Get(name)
		if v == "" && name != field {
			v = params.Get(field)
		}
		if v != "" {
			out[field] = v
		}
	}
	return out
}

func flatten(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k := range params {
		out[k] = params.Get(k)
	}
	return out
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}
