package checkout

import (
	"fmt"
	"net/url"
)

// ReturnParam is the single query parameter the payment page hands back.
const ReturnParam = "checkout"

const (
	returnSuccess = "success"
	returnCancel  = "cancel"
)

// CallbackURLs derives the payment success and cancel URLs from the booking page
// URL. Any stale return parameter on the page URL is replaced.
func CallbackURLs(pageURL string) (success, cancel string, err error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", "", fmt.Errorf("parse page url: %w", err)
	}
	if !u.IsAbs() {
		return "", "", fmt.Errorf("page url %q is not absolute", pageURL)
	}
	return withReturn(*u, returnSuccess), withReturn(*u, returnCancel), nil
}

func withReturn(u url.URL, value string) string {
	q := u.Query()
	q.Set(ReturnParam, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// ParseReturn reads the payment return parameter from a page URL and returns the
// URL with the parameter removed. Unknown values are stripped and ignored.
func ParseReturn(pageURL string) (ReturnKind, string) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ReturnNone, pageURL
	}
	q := u.Query()
	if !q.Has(ReturnParam) {
		return ReturnNone, pageURL
	}

	kind := ReturnNone
	switch q.Get(ReturnParam) {
	case returnSuccess:
		kind = ReturnSuccess
	case returnCancel:
		kind = ReturnCancel
	}

	q.Del(ReturnParam)
	u.RawQuery = q.Encode()
	return kind, u.String()
}
