package graph

import "github.com/shineum/contact-relay/internal/email"

// sendMailRequest is the request body for the sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject           string      `json:"subject"`
	Body              messageBody `json:"body"`
	From              *recipient  `json:"from,omitempty"`
	ToRecipients      []recipient `json:"toRecipients"`
	ReplyTo           []recipient `json:"replyTo,omitempty"`
	InternetMessageID string      `json:"internetMessageId,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// tokenResponse is the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// oauthError is the token endpoint's error body.
type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

type graphErrorResponse struct {
	Error graphError `json:"error"`
}

type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a message into a sendMail request body. The
// HTML body is preferred; Graph accepts a single body per message.
func buildSendMailRequest(msg *email.Message) *sendMailRequest {
	body := messageBody{
		ContentType: "text",
		Content:     msg.TextBody,
	}
	if msg.HTMLBody != "" {
		body.ContentType = "html"
		body.Content = msg.HTMLBody
	}

	req := &sendMailRequest{
		Message: sendMailMessage{
			Subject:           msg.Subject,
			Body:              body,
			ToRecipients:      toRecipients(msg.To),
			ReplyTo:           toRecipients(msg.ReplyTo),
			InternetMessageID: formatMessageID(msg.MessageID),
		},
	}
	if msg.From.Address != "" {
		from := toRecipient(msg.From)
		req.Message.From = &from
	}
	return req
}

func toRecipient(a email.Address) recipient {
	return recipient{EmailAddress: emailAddress{Name: a.Name, Address: a.Address}}
}

func toRecipients(addrs []email.Address) []recipient {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]recipient, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, toRecipient(a))
	}
	return out
}

func formatMessageID(id string) string {
	if id == "" {
		return ""
	}
	return "<" + id + ">"
}
