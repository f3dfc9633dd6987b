package whatsapp

import (
	"net/url"
	"strings"
)

const defaultBaseURL = "https://wa.me"

// Client composes wa.me deep links. There is no send API and no
// delivery feedback: the caller opens the URL and the chat app takes
// over with the text prefilled.
type Client struct {
	BaseURL string
}

func (c *Client) Compose(to, body string) string {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	// QueryEscape would turn spaces into '+', which WhatsApp renders
	// literally; percent-encode them instead.
	text := strings.ReplaceAll(url.QueryEscape(body), "+", "%20")
	return base + "/" + to + "?text=" + text
}
