package api

import (
	"github.com/go-chi/chi/v5"
)

func registerRoutes(r chi.Router, h *Handler) {
	r.Get("/healthcheck", registerHandler(h.HealthCheck))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/program", registerHandler(h.GetProgram))
		r.Post("/instructions", registerHandler(h.SubmitInstruction))
		r.Get("/config", registerHandler(h.GetConfig))
		r.Get("/stakes/{owner}/{asset}", registerHandler(h.GetStake))
		r.Get("/users/{owner}", registerHandler(h.GetUser))
		r.Get("/assets/{asset}", registerHandler(h.GetAsset))
		r.Get("/stats", registerHandler(h.GetStats))

		// minting stands in for the token ledger and is only exposed on local deployments
		if h.enableMint {
			r.Post("/assets", registerHandler(h.MintAsset))
		}
	})
}
