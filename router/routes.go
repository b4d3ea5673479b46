package router

import (
	"net/http"

	"github.com/soteria-id/stsd/handler"
)

// Route manages the routing for the STS server.
type Route struct {
	Name        string
	Methods     []string
	Pattern     string
	HandlerFunc handler.Func
}

// NewRoutes returns the Route slice of the four STS operations.
func NewRoutes(h handler.Handler) []Route {
	return []Route{
		{
			"Issue Handler",
			[]string{
				http.MethodPost,
			},
			"/issue",
			h.Issue,
		},
		{
			"Renew Handler",
			[]string{
				http.MethodPost,
			},
			"/renew",
			h.Renew,
		},
		{
			"Validate Handler",
			[]string{
				http.MethodPost,
			},
			"/validate",
			h.Validate,
		},
		{
			"Challenge Handler",
			[]string{
				http.MethodPost,
			},
			"/challenge",
			h.Challenge,
		},
	}
}
