package apiclient

// Describe turns a failed call into the sentence shown to the user. The
// backend's own message is preferred for client-side mistakes.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	msg := MessageOf(err)
	switch KindOf(err) {
	case KindTimeout:
		return "The request timed out. Please check your connection and try again."
	case KindNetwork:
		return "Unable to connect to server. Please check your connection and try again."
	case KindUnauthorized:
		return "Your session has expired. Please sign in again."
	case KindForbidden:
		return "You do not have permission to do that."
	case KindServer:
		return "Server error. Please try again later."
	case KindMalformed:
		return "Unexpected response from server. Please try again later."
	case KindConflict:
		return orDefault(msg, "This record already exists.")
	case KindInvalid:
		return orDefault(msg, "Some details are invalid. Please check and try again.")
	case KindNotFound:
		return orDefault(msg, "Not found.")
	case KindRejected, KindClient:
		return orDefault(msg, "The request was not accepted. Please try again.")
	case KindUnknown:
	}
	return err.Error()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
