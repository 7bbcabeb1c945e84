package email

import "net/textproto"

// Header names set from mailing-list details
const (
	HeaderListID              = "List-Id"
	HeaderListPost            = "List-Post"
	HeaderListUnsubscribe     = "List-Unsubscribe"
	HeaderListUnsubscribePost = "List-Unsubscribe-Post"
	HeaderPrecedence          = "Precedence"
	HeaderAutoSubmitted       = "Auto-Submitted"
)

// OneClickUnsubscribeValue is the RFC 8058 List-Unsubscribe-Post value
const OneClickUnsubscribeValue = "List-Unsubscribe=One-Click"

// BuildHeaders merges custom headers with the ones derived from list.
// Names are canonicalized so collisions are case-insensitive, and
// list-derived headers win. Inputs are not modified.
func BuildHeaders(custom map[string]string, list *MailingList) map[string]string {
	headers := make(map[string]string, len(custom)+6)
	for k, v := range custom {
		headers[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	if list == nil {
		return headers
	}

	if list.ListID != "" {
		headers[HeaderListID] = list.ListID
	}
	if list.ListPost != "" {
		headers[HeaderListPost] = list.ListPost
	}
	if list.Unsubscribe != "" {
		headers[HeaderListUnsubscribe] = list.Unsubscribe
		if list.OneClickUnsubscribe {
			headers[HeaderListUnsubscribePost] = OneClickUnsubscribeValue
		}
	}
	if list.Precedence != "" {
		headers[HeaderPrecedence] = list.Precedence
	}
	if list.AutoSubmitted != nil {
		if *list.AutoSubmitted {
			headers[HeaderAutoSubmitted] = "auto-generated"
		} else {
			headers[HeaderAutoSubmitted] = "no"
		}
	}
	return headers
}
