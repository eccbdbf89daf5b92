package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/bloodnet-event-driven/internal/api/middleware"
	"github.com/example/bloodnet-event-driven/internal/auth"
	"github.com/example/bloodnet-event-driven/internal/domain/user"
)

// RouterConfig carries the handler groups and services the router wires up
type RouterConfig struct {
	Handlers     *Handlers
	AuthHandlers *AuthHandlers
	JWTService   *auth.JWTService
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.AuthMiddleware(cfg.JWTService)
	requireHospital := middleware.RequireRole(user.RoleHospital, user.RoleAdmin)
	requireBank := middleware.RequireRole(user.RoleBank, user.RoleAdmin)
	requireDonor := middleware.RequireRole(user.RoleDonor, user.RoleAdmin)
	requireAdmin := middleware.RequireRole(user.RoleAdmin)

	// Auth
	mux.HandleFunc("/api/auth/register", post(cfg.AuthHandlers.Register))
	mux.HandleFunc("/api/auth/login", post(cfg.AuthHandlers.Login))
	mux.HandleFunc("/api/auth/refresh", post(cfg.AuthHandlers.Refresh))
	mux.Handle("/api/auth/logout", authed(post(cfg.AuthHandlers.Logout)))
	mux.Handle("/api/auth/me", authed(get(cfg.AuthHandlers.Me)))
	mux.Handle("/api/auth/change-password", authed(post(cfg.AuthHandlers.ChangePassword)))
	mux.Handle("/api/auth/staff", authed(requireAdmin(post(cfg.AuthHandlers.RegisterStaff))))

	// Requests
	mux.Handle("/requests", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.Handlers.GetRequests(w, r)
		case http.MethodPost:
			requireHospital(http.HandlerFunc(cfg.Handlers.SubmitRequest)).ServeHTTP(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/requests/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/advance") && r.Method == http.MethodPost:
			requireBank(http.HandlerFunc(cfg.Handlers.AdvanceRequest)).ServeHTTP(w, r)
		case strings.HasSuffix(path, "/cancel") && r.Method == http.MethodPost:
			requireHospital(http.HandlerFunc(cfg.Handlers.CancelRequest)).ServeHTTP(w, r)
		case r.Method == http.MethodGet:
			cfg.Handlers.GetRequest(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Deliveries
	mux.Handle("/deliveries", authed(requireBank(post(cfg.Handlers.ScheduleDelivery))))

	mux.Handle("/deliveries/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/advance") && r.Method == http.MethodPost:
			requireBank(http.HandlerFunc(cfg.Handlers.AdvanceDelivery)).ServeHTTP(w, r)
		case r.Method == http.MethodGet:
			cfg.Handlers.GetDelivery(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Vouchers
	mux.Handle("/vouchers", authed(get(cfg.Handlers.GetVouchers)))

	mux.Handle("/vouchers/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/accept") && r.Method == http.MethodPost:
			requireBank(http.HandlerFunc(cfg.Handlers.AcceptVoucher)).ServeHTTP(w, r)
		case strings.HasSuffix(path, "/complete") && r.Method == http.MethodPost:
			requireBank(http.HandlerFunc(cfg.Handlers.CompleteVoucher)).ServeHTTP(w, r)
		case strings.HasSuffix(path, "/reject") && r.Method == http.MethodPost:
			requireBank(http.HandlerFunc(cfg.Handlers.RejectVoucher)).ServeHTTP(w, r)
		case r.Method == http.MethodGet:
			cfg.Handlers.GetVoucher(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Donations & rewards
	mux.Handle("/donations", authed(requireBank(post(cfg.Handlers.RecordDonation))))
	mux.Handle("/rewards", authed(requireDonor(get(cfg.Handlers.GetRewardBalance))))
	mux.Handle("/rewards/redeem", authed(requireDonor(post(cfg.Handlers.RedeemPoints))))

	// Banks
	mux.Handle("/banks", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg.Handlers.ListBanks(w, r)
		case http.MethodPost:
			requireAdmin(http.HandlerFunc(cfg.Handlers.RegisterBank)).ServeHTTP(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/banks/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := bankSubRoute(r.URL.Path)
		switch {
		case sub == "/inventory" && r.Method == http.MethodGet:
			cfg.Handlers.GetInventorySummary(w, r)
		case sub == "/storages" && r.Method == http.MethodPost:
			requireBank(http.HandlerFunc(cfg.Handlers.AddStorage)).ServeHTTP(w, r)
		case sub == "/stock" && r.Method == http.MethodPost:
			requireBank(http.HandlerFunc(cfg.Handlers.ReceiveStock)).ServeHTTP(w, r)
		case sub == "/stock/adjust" && r.Method == http.MethodPost:
			requireBank(http.HandlerFunc(cfg.Handlers.AdjustInventory)).ServeHTTP(w, r)
		case sub == "/stock/expire" && r.Method == http.MethodPost:
			requireBank(http.HandlerFunc(cfg.Handlers.MarkExpired)).ServeHTTP(w, r)
		case sub == "" && r.Method == http.MethodGet:
			cfg.Handlers.GetBank(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	return withLogging(mux)
}

// post restricts a handler to POST requests
func post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// get restricts a handler to GET requests
func get(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
