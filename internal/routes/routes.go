package routes

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/evn/shiftbot/internal/app"
	"github.com/evn/shiftbot/internal/handlers"
	adminHandlers "github.com/evn/shiftbot/internal/handlers/admin"
	authHandlers "github.com/evn/shiftbot/internal/handlers/auth"
	"github.com/evn/shiftbot/internal/middleware"
	authService "github.com/evn/shiftbot/internal/services/auth"
)

// Setup инициализирует и возвращает настроенный маршрутизатор HTTP API.
func Setup(a *app.App, database *sql.DB, jwtSecret, botToken string) *chi.Mux {
	jwtAuth := jwtauth.New("HS256", []byte(jwtSecret), nil)
	telegramAuthService := authService.NewTelegramAuthService(botToken)

	authHandler := authHandlers.NewAuthHandler(a.Groups, a.JWT, telegramAuthService)
	shiftHandler := adminHandlers.NewShiftHandler(a)

	router := chi.NewRouter()
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(jwtauth.Verify(jwtAuth, jwtauth.TokenFromHeader, tokenFromQuery))
	router.Use(middleware.AddPrincipalToContext())

	// Публичные маршруты
	router.Get("/health", handlers.HealthHandler(database))
	router.Post("/api/auth/telegram", authHandler.TelegramAuthHandler)

	router.Group(func(r chi.Router) {
		r.Use(jwtauth.Authenticator(jwtAuth))

		r.Route("/api/groups/{groupID}", func(r chi.Router) {
			r.Use(middleware.RequireGroupAdmin(a))

			r.Get("/shifts", shiftHandler.GetShiftsByDate)
			r.Get("/shifts/history", handlers.GetShiftHistoryHandler(a.Repo))
			r.Get("/shifts/{shiftID}", shiftHandler.GetShift)
			r.Post("/shifts/{shiftID}/complete", shiftHandler.CompleteShift)
			r.Post("/shifts/{shiftID}/cancel", shiftHandler.CancelShift)
			r.Put("/shifts/{shiftID}/schedule", shiftHandler.EditShift)
			r.Delete("/shifts/{shiftID}", shiftHandler.DeleteShift)

			r.Get("/employees", handlers.ListEmployeesHandler(a.Repo))
			r.Get("/users/{userID}/shifts", handlers.GetUserShiftsHandler(a.Repo))

			r.Get("/report", shiftHandler.GetReport)
			r.Post("/report/rebuild", shiftHandler.RebuildReport)
			r.Get("/report.xlsx", shiftHandler.ExportReport)

			r.Get("/ws", handlers.WebSocketHandler(a.Live))
		})
	})

	return router
}
