package router

import "net/url"

// Location is one navigation target: the matched route name, the concrete
// path, its path parameters and the query.
type Location struct {
	Name   string            `json:"name,omitempty"`
	Path   string            `json:"path"`
	Params map[string]string `json:"params,omitempty"`
	Query  url.Values        `json:"query,omitempty"`
}

// FullPath is the path with its encoded query, as used for return targets.
func (l Location) FullPath() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}
