package handlers

import (
	"net/http"

	"selfmanager/internal/media"
)

// Router holds every handler needed to serve the API
type Router struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Users      *UserHandler
	Families   *FamilyHandler
	Chat       *ChatHandler
	Ledger     *LedgerHandler
	Media      *media.Store
}

// Register mounts all routes on mux
func (rt *Router) Register(mux *http.ServeMux) {
	mw := rt.Middleware
	auth := mw.RequireAuth

	// Auth routes
	mux.HandleFunc("POST /api/auth/send-otp/{$}", mw.RateLimit(rt.Auth.SendOTP))
	mux.HandleFunc("POST /api/auth/verify-otp/{$}", mw.RateLimit(rt.Auth.VerifyOTP))
	mux.HandleFunc("POST /api/auth/register/{$}", mw.RateLimit(rt.Auth.Register))
	mux.HandleFunc("POST /api/auth/token/{$}", mw.RateLimit(rt.Auth.Login))
	mux.HandleFunc("POST /api/auth/token/refresh/{$}", rt.Auth.Refresh)
	mux.HandleFunc("POST /api/auth/google-login/{$}", mw.RateLimit(rt.Auth.GoogleLogin))
	mux.HandleFunc("POST /api/auth/reset-password/{$}", mw.RateLimit(rt.Auth.ResetPassword))

	// User routes
	mux.HandleFunc("GET /api/users/me/{$}", auth(rt.Users.Me))
	mux.HandleFunc("PUT /api/users/me/{$}", auth(rt.Users.UpdateMe))
	mux.HandleFunc("PATCH /api/users/me/{$}", auth(rt.Users.UpdateMe))
	mux.HandleFunc("POST /api/users/update-fcm-token/{$}", auth(rt.Users.UpdateFCMToken))
	mux.HandleFunc("DELETE /api/users/delete-account/{$}", auth(rt.Users.DeleteAccount))

	// Family routes
	mux.HandleFunc("GET /api/families/{$}", auth(rt.Families.ListFamilies))
	mux.HandleFunc("POST /api/families/{$}", auth(rt.Families.CreateFamily))
	mux.HandleFunc("GET /api/families/{id}/{$}", auth(rt.Families.GetFamily))
	mux.HandleFunc("PUT /api/families/{id}/{$}", auth(rt.Families.UpdateFamily))
	mux.HandleFunc("PATCH /api/families/{id}/{$}", auth(rt.Families.UpdateFamily))
	mux.HandleFunc("DELETE /api/families/{id}/{$}", auth(rt.Families.DeleteFamily))
	mux.HandleFunc("GET /api/families/{id}/members/{$}", auth(rt.Families.Members))
	mux.HandleFunc("POST /api/families/join/{$}", auth(rt.Families.Join))
	mux.HandleFunc("GET /api/families/by_code/{$}", auth(rt.Families.ByCode))
	mux.HandleFunc("GET /api/families/{id}/pending_requests/{$}", auth(rt.Families.PendingRequests))
	mux.HandleFunc("POST /api/families/{id}/handle_request/{$}", auth(rt.Families.HandleRequest))
	mux.HandleFunc("POST /api/families/{id}/transfer_ownership/{$}", auth(rt.Families.TransferOwnership))
	mux.HandleFunc("DELETE /api/family-members/{id}/{$}", auth(rt.Families.RemoveMember))
	mux.HandleFunc("GET /families/invite/{code}/{$}", rt.Families.Invite)

	// Chat routes
	mux.HandleFunc("GET /api/chat/families/{id}/messages/{$}", auth(rt.Chat.ListMessages))
	mux.HandleFunc("POST /api/chat/families/{id}/messages/{$}", auth(rt.Chat.SendMessage))
	mux.HandleFunc("POST /api/chat/families/{id}/read/{$}", auth(rt.Chat.MarkRead))
	mux.HandleFunc("GET /api/chat/messages/{id}/{$}", auth(rt.Chat.GetMessage))
	mux.HandleFunc("PATCH /api/chat/messages/{id}/{$}", auth(rt.Chat.EditMessage))
	mux.HandleFunc("PUT /api/chat/messages/{id}/{$}", auth(rt.Chat.EditMessage))
	mux.HandleFunc("DELETE /api/chat/messages/{id}/{$}", auth(rt.Chat.DeleteMessage))

	// Expense routes
	mux.HandleFunc("GET /api/expenses/{$}", auth(rt.Ledger.ListExpenses))
	mux.HandleFunc("POST /api/expenses/{$}", auth(rt.Ledger.CreateExpense))
	mux.HandleFunc("GET /api/expenses/{id}/{$}", auth(rt.Ledger.GetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}/{$}", auth(rt.Ledger.UpdateExpense))
	mux.HandleFunc("PATCH /api/expenses/{id}/{$}", auth(rt.Ledger.UpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}/{$}", auth(rt.Ledger.DeleteExpense))

	// Udhar routes
	mux.HandleFunc("GET /api/udhar/{$}", auth(rt.Ledger.ListUdhars))
	mux.HandleFunc("POST /api/udhar/{$}", auth(rt.Ledger.CreateUdhar))
	mux.HandleFunc("GET /api/udhar/{id}/{$}", auth(rt.Ledger.GetUdhar))
	mux.HandleFunc("PUT /api/udhar/{id}/{$}", auth(rt.Ledger.UpdateUdhar))
	mux.HandleFunc("PATCH /api/udhar/{id}/{$}", auth(rt.Ledger.UpdateUdhar))
	mux.HandleFunc("DELETE /api/udhar/{id}/{$}", auth(rt.Ledger.DeleteUdhar))
	mux.HandleFunc("POST /api/udhar/{id}/add_repayment/{$}", auth(rt.Ledger.AddRepayment))
	mux.HandleFunc("POST /api/udhar/{id}/close_udhar/{$}", auth(rt.Ledger.CloseUdhar))

	// Attendance routes
	mux.HandleFunc("GET /api/attendance/{$}", auth(rt.Ledger.ListAttendance))
	mux.HandleFunc("POST /api/attendance/{$}", auth(rt.Ledger.CreateAttendance))
	mux.HandleFunc("GET /api/attendance/{id}/{$}", auth(rt.Ledger.GetAttendance))
	mux.HandleFunc("PUT /api/attendance/{id}/{$}", auth(rt.Ledger.UpdateAttendance))
	mux.HandleFunc("PATCH /api/attendance/{id}/{$}", auth(rt.Ledger.UpdateAttendance))
	mux.HandleFunc("DELETE /api/attendance/{id}/{$}", auth(rt.Ledger.DeleteAttendance))

	// Note routes
	mux.HandleFunc("GET /api/notes/{$}", auth(rt.Ledger.ListNotes))
	mux.HandleFunc("POST /api/notes/{$}", auth(rt.Ledger.CreateNote))
	mux.HandleFunc("GET /api/notes/{id}/{$}", auth(rt.Ledger.GetNote))
	mux.HandleFunc("PUT /api/notes/{id}/{$}", auth(rt.Ledger.UpdateNote))
	mux.HandleFunc("PATCH /api/notes/{id}/{$}", auth(rt.Ledger.UpdateNote))
	mux.HandleFunc("DELETE /api/notes/{id}/{$}", auth(rt.Ledger.DeleteNote))

	// Uploaded media
	mux.Handle(rt.Media.Pattern(), rt.Media.Handler())
}
