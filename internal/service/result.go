package service

// ActionResult is the outcome of a dashboard form action. Exactly one of
// RedirectTo or Message is set.
type ActionResult struct {
	RedirectTo string `json:"redirectTo,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Redirect sends the user to path.
func Redirect(path string) ActionResult {
	return ActionResult{RedirectTo: path}
}

// Message returns text to be displayed on the form.
func Message(text string) ActionResult {
	return ActionResult{Message: text}
}

func (r ActionResult) IsRedirect() bool {
	return r.RedirectTo != ""
}
