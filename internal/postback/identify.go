package postback

import (
	"net/url"
	"strings"
)

// senderSignature maps a lower-case substring to a display name.
type senderSignature struct {
	needle string
	name   string
}

var userAgentSignatures = []senderSignature{
	{"pepperads", "PepperAds"},
	{"everflow", "Everflow"},
	{"hasoffers", "HasOffers"},
	{"tune", "TUNE"},
	{"cake", "CAKE"},
	{"impact", "Impact"},
	{"voluum", "Voluum"},
	{"binom", "Binom"},
	{"postman", "Postman"},
	{"insomnia", "Insomnia"},
	{"curl", "curl"},
	{"wget", "wget"},
	{"python-requests", "Python script"},
	{"go-http-client", "Go client"},
	{"okhttp", "Android client"},
	{"mozilla", "Browser"},
}

var transactionSignatures = []senderSignature{
	{"pepper", "PepperAds"},
	{"pa_", "PepperAds"},
	{"ef_", "Everflow"},
	{"tune_", "TUNE"},
}

// IdentifySender guesses who made an inbound call, for audit display only.
// User-Agent wins over Referer, which wins over the transaction id.
func IdentifySender(userAgent, referer, transactionID string) string {
	ua := strings.ToLower(userAgent)
	for _, sig := range userAgentSignatures {
		if strings.Contains(ua, sig.needle) {
			if sig.name == "Browser" {
				if host := refererHost(referer); host != "" {
					return host
				}
			}
			return sig.name
		}
	}

	if host := refererHost(referer); host != "" {
		return host
	}

	tx := strings.ToLower(transactionID)
	for _, sig := range transactionSignatures {
		if strings.Contains(tx, sig.needle) {
			return sig.name
		}
	}

	if userAgent != "" {
		return "unknown (" + truncate(userAgent, 60) + ")"
	}
	return "unknown"
}

func refererHost(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
