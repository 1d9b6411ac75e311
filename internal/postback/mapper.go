// Package postback notifies external parties of survey completions and
// receives their callbacks.
package postback

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"surveypulse/internal/model"
)

// Standard fields understood by every partner integration.
const (
	FieldClickID          = "click_id"
	FieldPayout           = "payout"
	FieldCurrency         = "currency"
	FieldOfferID          = "offer_id"
	FieldConversionStatus = "conversion_status"
	FieldTransactionID    = "transaction_id"
	FieldSub1             = "sub1"
	FieldSub2             = "sub2"
	FieldEventName        = "event_name"
	FieldTimestamp        = "timestamp"
)

// Extended fields available to richer integrations.
const (
	FieldSurveyID       = "survey_id"
	FieldSurveyTitle    = "survey_title"
	FieldResponseID     = "response_id"
	FieldUsername       = "username"
	FieldEmail          = "email"
	FieldUserID         = "user_id"
	FieldSessionID      = "session_id"
	FieldIPAddress      = "ip_address"
	FieldUserAgent      = "user_agent"
	FieldStatus         = "status"
	FieldScore          = "score"
	FieldResponses      = "responses"
	FieldResponsesFlat  = "responses_flat"
	FieldResponsesCount = "responses_count"
	FieldCompletedAt    = "completed_at"
)

// StandardFields is the fixed vocabulary, also parsed by the inbound receiver.
var StandardFields = []string{
	FieldClickID,
	FieldPayout,
	FieldCurrency,
	FieldOfferID,
	FieldConversionStatus,
	FieldTransactionID,
	FieldSub1,
	FieldSub2,
	FieldEventName,
	FieldTimestamp,
}

// ResponseFields are only sent to recipients that opted into answers.
var ResponseFields = []string{FieldResponses, FieldResponsesFlat, FieldResponsesCount}

// Data maps a field name to its value for one completion.
type Data map[string]any

// Rendered is the output of Render.
type Rendered struct {
	URL     string
	Method  model.PostbackMethod
	Body    map[string]any    // POST only
	Params  map[string]string // every parameter sent, by outgoing name
	Missing []string          // placeholders that resolved to nothing
}

// placeholderPattern matches [FIELD_NAME] and {field_name} in one pass.
var placeholderPattern = regexp.MustCompile(`\[([A-Z0-9_]+)\]|\{([A-Za-z0-9_]+)\}`)

// DefaultMapping sends every standard field under its own name.
func DefaultMapping() map[string]string {
	m := make(map[string]string, len(StandardFields))
	for _, f := range StandardFields {
		m[f] = f
	}
	return m
}

// Render substitutes placeholders in tmpl and, for GET, appends mapped
// fields the template did not consume; for POST it builds a flat JSON body
// of mapped fields. It never fails: anything unresolvable becomes "".
func Render(tmpl string, mapping map[string]string, data Data, method model.PostbackMethod) Rendered {
	method = method.Normalize()
	out := Rendered{Method: method, Params: map[string]string{}}

	reverse := make(map[string]string, len(mapping))
	for field, custom := range mapping {
		if custom != "" {
			reverse[strings.ToLower(custom)] = field
		}
	}

	consumed := map[string]bool{}
	resolve := func(token string, escape func(string) string) string {
		name := strings.ToLower(token[1 : len(token)-1])
		field := name
		if f, ok := reverse[name]; ok {
			if _, own := mapping[name]; !own {
				field = f
			}
		}

		v, ok := data[field]
		if !ok || v == nil {
			out.Missing = append(out.Missing, token)
			return ""
		}
		consumed[field] = true
		s := stringify(v)
		out.Params[outgoingName(field, mapping)] = s
		return escape(s)
	}

	// Placeholders before the query string sit in the path.
	queryStart := strings.IndexByte(tmpl, '?')
	var b strings.Builder
	last := 0
	for _, loc := range placeholderPattern.FindAllStringIndex(tmpl, -1) {
		b.WriteString(tmpl[last:loc[0]])
		escape := url.QueryEscape
		if queryStart < 0 || loc[0] < queryStart {
			escape = url.PathEscape
		}
		b.WriteString(resolve(tmpl[loc[0]:loc[1]], escape))
		last = loc[1]
	}
	b.WriteString(tmpl[last:])
	out.URL = b.String()

	fields := make([]string, 0, len(mapping))
	for field := range mapping {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	if method == model.MethodPOST {
		out.Body = make(map[string]any, len(fields))
		for _, field := range fields {
			v, ok := data[field]
			if !ok || v == nil {
				continue
			}
			name := outgoingName(field, mapping)
			out.Body[name] = v
			out.Params[name] = stringify(v)
		}
		return out
	}

	extra := url.Values{}
	var order []string
	for _, field := range fields {
		if consumed[field] {
			continue
		}
		v, ok := data[field]
		if !ok || v == nil {
			continue
		}
		s := stringify(v)
		if s == "" {
			continue
		}
		name := outgoingName(field, mapping)
		extra.Set(name, s)
		order = append(order, name)
		out.Params[name] = s
	}
	out.URL = appendQuery(out.URL, extra, order)
	return out
}

// AppendParams adds static key/value pairs to a URL, sorted by key.
func AppendParams(rawURL string, params map[string]string) string {
	if len(params) == 0 {
		return rawURL
	}
	values := url.Values{}
	order := make([]string, 0, len(params))
	for k, v := range params {
		values.Set(k, v)
		order = append(order, k)
	}
	sort.Strings(order)
	return appendQuery(rawURL, values, order)
}

func appendQuery(rawURL string, values url.Values, order []string) string {
	if len(order) == 0 {
		return rawURL
	}
	pairs := make([]string, 0, len(order))
	for _, k := range order {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(values.Get(k)))
	}
	query := strings.Join(pairs, "&")

	fragment := ""
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL, fragment = rawURL[:i], rawURL[i:]
	}
	switch {
	case !strings.Contains(rawURL, "?"):
		rawURL += "?" + query
	case strings.HasSuffix(rawURL, "?"), strings.HasSuffix(rawURL, "&"):
		rawURL += query
	default:
		rawURL += "&" + query
	}
	return rawURL + fragment
}

func outgoingName(field string, mapping map[string]string) string {
	if custom := mapping[field]; custom != "" {
		return custom
	}
	return field
}

// stringify renders a value for a URL. Composite values become JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case json.Number:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
