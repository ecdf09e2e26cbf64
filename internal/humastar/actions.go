package humastar

import "fmt"

// Action is a state-dependent hypermedia action link. Response bodies
// implement [Actor] to emit them as Link headers:
//
//	</api/v1/layers/3/visible>; rel="hide"; method="PUT"; title="Hide Roads"
type Action struct {
	Rel    string // custom rel (e.g., "hide", "expand")
	Href   string // target URL
	Method string // HTTP method: POST, PUT, DELETE, etc.
	Title  string // optional human-readable label
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value
// with method and title extension parameters.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	return h
}
