package postback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"surveypulse/internal/config"
	"surveypulse/internal/model"
	"surveypulse/internal/observability"
)

const defaultTimeout = 10 * time.Second

// AuditSink records delivery attempts. Append must not block.
type AuditSink interface {
	Append(entry model.AuditLogEntry)
}

// DeliveryResult is the outcome for one recipient.
type DeliveryResult struct {
	Kind       RecipientKind `json:"kind"`
	Name       string        `json:"name"`
	URL        string        `json:"url"`
	Method     string        `json:"method"`
	Success    bool          `json:"success"`
	StatusCode int           `json:"statusCode,omitempty"`
	Error      string        `json:"error,omitempty"`
	DurationMS int64         `json:"durationMs"`
}

// DispatchResult aggregates one dispatch. Partial failure is normal.
type DispatchResult struct {
	TotalSent  int              `json:"totalSent"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Details    []DeliveryResult `json:"details"`
	Error      string           `json:"error,omitempty"`
}

// Dispatcher fans a completion out to every eligible recipient.
type Dispatcher struct {
	recipients recipientGatherer
	sender     Sender
	audit      AuditSink
	cfg        config.PostbackConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	surveys SurveyStore,
	users UserStore,
	partners PartnerStore,
	mappings MappingStore,
	sender Sender,
	audit AuditSink,
	cfg config.PostbackConfig,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Dispatcher{
		recipients: recipientGatherer{
			surveys:  surveys,
			users:    users,
			partners: partners,
			mappings: mappings,
			logger:   logger,
		},
		sender: sender,
		audit:  audit,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Dispatch notifies every recipient of the completion and waits for all
// of them. It never returns an error; failures are reported per recipient
// and anything unexpected ends up in DispatchResult.Error.
func (d *Dispatcher) Dispatch(ctx context.Context, surveyID string, completion *model.CompletionData) (result DispatchResult) {
	result.Details = []DeliveryResult{}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("postback dispatch panicked", "survey_id", surveyID, "panic", r)
			result.Error = fmt.Sprintf("dispatch error: %v", r)
		}
	}()

	if completion == nil {
		completion = &model.CompletionData{SurveyID: surveyID}
	}

	targets := d.recipients.gather(ctx, surveyID, completion.Passed())
	if len(targets) == 0 {
		d.logger.Info("no postback recipients", "survey_id", surveyID)
		return result
	}

	data := BuildData(completion, uuid.NewString())
	details := make([]DeliveryResult, len(targets))

	var g errgroup.Group
	g.SetLimit(d.cfg.MaxConcurrency)
	for i, target := range targets {
		i := i
		target := target
		g.Go(func() error {
			details[i] = d.deliver(ctx, surveyID, target, data)
			return nil
		})
	}
	_ = g.Wait()

	result.Details = details
	result.TotalSent = len(details)
	for _, det := range details {
		if det.Success {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	d.logger.Info("postbacks dispatched",
		"survey_id", surveyID,
		"total", result.TotalSent,
		"successful", result.Successful,
		"failed", result.Failed,
	)
	return result
}

// deliver performs one call and records it. A panic here only fails this recipient.
func (d *Dispatcher) deliver(ctx context.Context, surveyID string, target RecipientTarget, data Data) (res DeliveryResult) {
	res = DeliveryResult{Kind: target.Kind, Name: target.Name, Method: string(target.Method.Normalize())}
	started := d.now()
	var params map[string]string
	var snippet string

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("postback delivery panicked", "recipient", target.Name, "panic", r)
			res.Success = false
			res.Error = fmt.Sprintf("internal_error: %v", r)
		}
		res.DurationMS = durationMS(d.now().Sub(started))
		d.record(surveyID, target, res, params, snippet)
	}()

	rendered := Render(target.Template, target.Mapping, data, target.Method)
	if len(rendered.Missing) > 0 {
		d.logger.Warn("postback placeholders left unresolved",
			"recipient", target.Name,
			"placeholders", rendered.Missing,
		)
	}
	res.URL = AppendParams(rendered.URL, target.ExtraParams)
	params = rendered.Params
	for k, v := range target.ExtraParams {
		params[k] = v
	}

	req := Request{Method: string(rendered.Method), URL: res.URL}
	if rendered.Method == model.MethodPOST {
		body, err := json.Marshal(rendered.Body)
		if err != nil {
			res.Error = ErrInvalidRequest.Error()
			return res
		}
		req.Body = body
	}

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	resp, err := d.sender.Send(callCtx, req)
	if resp != nil {
		res.StatusCode = resp.StatusCode
		snippet = resp.Snippet
	}
	if code := ErrorCode(res.StatusCode, err); code != "" {
		res.Error = code
		d.logger.Warn("postback delivery failed",
			"recipient", target.Name,
			"kind", target.Kind,
			"status_code", res.StatusCode,
			"error", err,
		)
		return res
	}

	res.Success = true
	return res
}

func (d *Dispatcher) record(surveyID string, target RecipientTarget, res DeliveryResult, params map[string]string, snippet string) {
	outcome := model.AuditSuccess
	if !res.Success {
		outcome = model.AuditFailure
	}
	observability.PostbackDeliveries.WithLabelValues(string(target.Kind), string(outcome)).Inc()
	observability.PostbackDeliveryDuration.WithLabelValues(string(target.Kind)).Observe(float64(res.DurationMS) / 1000)

	if d.audit == nil {
		return
	}
	d.audit.Append(model.AuditLogEntry{
		Type:            model.AuditOutbound,
		RecipientKind:   string(target.Kind),
		RecipientName:   target.Name,
		SurveyID:        surveyID,
		URL:             res.URL,
		Method:          res.Method,
		Status:          outcome,
		StatusCode:      res.StatusCode,
		ResponseSnippet: snippet,
		Error:           res.Error,
		Parameters:      params,
		DurationMS:      res.DurationMS,
		Timestamp:       d.now(),
	})
}
