package handler

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"surveypulse/internal/postback"
)

// PostbackHandler accepts partner callbacks on the shared inbound URLs
type PostbackHandler struct {
	receiver *postback.Receiver
}

// NewPostbackHandler creates a new inbound postback handler
func NewPostbackHandler(receiver *postback.Receiver) *PostbackHandler {
	return &PostbackHandler{receiver: receiver}
}

// Receive handles GET|POST /postback/{uniqueId}. Query, form and flat
// JSON bodies are all accepted; the query string wins on conflicts.
func (h *PostbackHandler) Receive(w http.ResponseWriter, r *http.Request) {
	uniqueID := mux.Vars(r)["uniqueId"]
	meta := postback.InboundMeta{
		Method:     r.Method,
		URL:        r.URL.String(),
		UserAgent:  r.UserAgent(),
		Referer:    r.Referer(),
		RemoteAddr: clientIP(r),
	}

	params, err := inboundParams(w, r)
	if err != nil {
		res := h.receiver.Reject(uniqueID, r.URL.Query(), meta, err)
		writeJSON(w, res.StatusCode, res)
		return
	}

	res := h.receiver.Receive(r.Context(), uniqueID, params, meta)
	writeJSON(w, res.StatusCode, res)
}

func inboundParams(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	params := url.Values{}
	if r.Method == http.MethodPost && r.Body != nil {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch mediaType {
		case "application/json":
			var body map[string]any
			if err := decodeJSON(w, r, &body); err != nil {
				return nil, err
			}
			for k, v := range body {
				switch t := v.(type) {
				case nil:
				case string:
					params.Set(k, t)
				case float64, bool:
					params.Set(k, fmt.Sprint(t))
				default:
					raw, _ := json.Marshal(t)
					params.Set(k, string(raw))
				}
			}
		default:
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := r.ParseForm(); err != nil {
				return nil, err
			}
			for k, vs := range r.PostForm {
				params[k] = vs
			}
		}
	}
	for k, vs := range r.URL.Query() {
		params[k] = vs
	}
	return params, nil
}
