package handlers

import (
	"net/http"

	"familia/internal/metrics"
	"familia/internal/security"
)

// Routes groups the handlers mounted by NewRouter
type Routes struct {
	Middleware  *Middleware
	Auth        *AuthHandler
	Family      *FamilyHandler
	Profile     *ProfileHandler
	Chat        *ChatHandler
	Calendar    *CalendarHandler
	AuthLimiter *security.RateLimiter
	// UploadDir is served under /uploads/ when pictures are stored locally
	UploadDir string
}

// NewRouter builds the HTTP handler for the API
func NewRouter(rt Routes) http.Handler {
	mux := http.NewServeMux()
	auth := rt.Middleware.RequireAuth

	limited := func(h http.HandlerFunc) http.Handler {
		if rt.AuthLimiter == nil {
			return h
		}
		return rt.AuthLimiter.Middleware(h)
	}

	// Public routes
	mux.Handle("POST /api/auth/register", limited(rt.Auth.Register))
	mux.Handle("POST /api/auth/login", limited(rt.Auth.Login))
	mux.HandleFunc("GET /auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", rt.Auth.OAuthCallback)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondSuccess(w, http.StatusOK, "ok")
	})
	mux.Handle("GET /metrics", metrics.Handler())
	if rt.UploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(rt.UploadDir))))
	}

	// Profile
	mux.HandleFunc("GET /api/me", auth(rt.Profile.Me))
	mux.HandleFunc("PUT /api/me", auth(rt.Profile.UpdateMe))
	mux.HandleFunc("POST /api/me/picture", auth(rt.Profile.UploadPicture))

	// Families
	mux.HandleFunc("POST /api/families", auth(rt.Family.CreateFamily))
	mux.HandleFunc("POST /api/families/join", auth(rt.Family.JoinFamily))
	mux.HandleFunc("POST /api/families/switch", auth(rt.Family.SwitchFamily))
	mux.HandleFunc("POST /api/families/invite", auth(rt.Family.Invite))
	mux.HandleFunc("GET /api/families/{id}/members", auth(rt.Family.Members))
	mux.HandleFunc("GET /api/families/{id}/qr.png", auth(rt.Family.QRCode))

	// Calendar
	mux.HandleFunc("GET /api/families/{id}/events", auth(rt.Calendar.Events))
	mux.HandleFunc("POST /api/families/{id}/events", auth(rt.Calendar.AddEvent))

	// Chat
	mux.HandleFunc("GET /api/chats", auth(rt.Family.Partners))
	mux.HandleFunc("GET /api/chats/{peer}/messages", auth(rt.Chat.Messages))
	mux.HandleFunc("POST /api/chats/{peer}/messages", auth(rt.Chat.Send))
	mux.HandleFunc("GET /api/chats/{peer}/stream", auth(rt.Chat.Stream))

	return Logging(mux)
}
