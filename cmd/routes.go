package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) JWTMiddlewareWithRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return app.JWTMiddleware(next, requiredRole)
	}
}

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole("user"))
	customerMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole("customer"))
	contractorMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole("contractor"))

	mux := pat.New()

	// Auth
	mux.Post("/user/sign_up", standardMiddleware.ThenFunc(app.userHandler.SignUp))
	mux.Post("/user/sign_in", standardMiddleware.ThenFunc(app.userHandler.SignIn))
	mux.Post("/user/refresh", standardMiddleware.ThenFunc(app.userHandler.Refresh))
	mux.Get("/user/me", authMiddleware.ThenFunc(app.userHandler.Me))
	mux.Get("/user/:id", authMiddleware.ThenFunc(app.userHandler.GetUserByID))

	// Quotes
	mux.Post("/quotes", customerMiddleware.ThenFunc(app.quoteHandler.CreateQuote))
	mux.Get("/quotes", authMiddleware.ThenFunc(app.quoteHandler.ListQuotes))
	mux.Get("/quotes/:id", authMiddleware.ThenFunc(app.quoteHandler.GetQuote))
	mux.Get("/quotes/:id/history", authMiddleware.ThenFunc(app.quoteHandler.GetHistory))
	mux.Patch("/quotes/:id", authMiddleware.ThenFunc(app.quoteHandler.UpdateQuote))

	// Escrow
	mux.Post("/milestones/:id/escrow", authMiddleware.ThenFunc(app.escrowHandler.EscrowAction))
	mux.Get("/milestones/:id/escrow", authMiddleware.ThenFunc(app.escrowHandler.EscrowStatus))

	// Work reports
	mux.Post("/milestones/:id/reports", contractorMiddleware.ThenFunc(app.reportHandler.SubmitReport))
	mux.Get("/milestones/:id/reports", authMiddleware.ThenFunc(app.reportHandler.ListReports))
	mux.Put("/reports/:id/review", customerMiddleware.ThenFunc(app.reportHandler.ReviewReport))

	// Evidence uploads
	mux.Post("/uploads/evidence", authMiddleware.ThenFunc(app.uploadHandler.UploadEvidence))

	// Push tokens
	mux.Post("/notify/tokens", authMiddleware.ThenFunc(app.notifyHandler.CreateToken))
	mux.Del("/notify/tokens/:token", authMiddleware.ThenFunc(app.notifyHandler.DeleteToken))

	// Events websocket
	mux.Get("/ws", authMiddleware.ThenFunc(app.WebSocketHandler))

	return mux
}
