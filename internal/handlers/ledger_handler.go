package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"selfmanager/internal/media"
	"selfmanager/internal/models"
	"selfmanager/internal/service"
	"selfmanager/internal/validation"
)

// LedgerHandler serves expenses, udhar, attendance and notes
type LedgerHandler struct {
	expenseService    *service.ExpenseService
	udharService      *service.UdharService
	attendanceService *service.AttendanceService
	noteService       *service.NoteService
	media             *media.Store
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(expenses *service.ExpenseService, udhars *service.UdharService, attendance *service.AttendanceService,
	notes *service.NoteService, store *media.Store) *LedgerHandler {
	return &LedgerHandler{
		expenseService:    expenses,
		udharService:      udhars,
		attendanceService: attendance,
		noteService:       notes,
		media:             store,
	}
}

// ListExpenses lists the expenses visible to the user
func (h *LedgerHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	expenses, err := h.expenseService.ListExpenses(user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing expenses", err)
		return
	}
	respondJSON(w, http.StatusOK, lo.Map(expenses, func(e models.Expense, _ int) ExpenseView {
		return newExpenseView(h.media, &e)
	}))
}

// readExpense reads an expense from JSON or from a multipart form with an optional image
func (h *LedgerHandler) readExpense(w http.ResponseWriter, r *http.Request) (service.ExpenseInput, bool) {
	var in service.ExpenseInput
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return in, decodeJSON(w, r, &in)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondWithServiceError(w, "", errBadUpload)
		return in, false
	}

	errs := validation.Errors{}
	form := func(key string) *string {
		if _, ok := r.MultipartForm.Value[key]; !ok {
			return nil
		}
		v := r.FormValue(key)
		return &v
	}
	if raw := form("amount"); raw != nil {
		amount, err := decimal.NewFromString(*raw)
		if err != nil {
			errs.Add("amount", "A valid number is required.")
		}
		in.Amount = &amount
	}
	in.Category = form("category")
	in.Date = form("date")
	in.Description = form("description")
	in.UUID = form("uuid")
	if raw := form("items"); raw != nil && *raw != "" {
		if err := json.Unmarshal([]byte(*raw), &in.Items); err != nil {
			errs.Add("items", "Value must be valid JSON.")
		}
	}
	if err := errs.Err(); err != nil {
		respondWithServiceError(w, "", err)
		return in, false
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, true
	}
	if err != nil {
		respondWithServiceError(w, "", errBadUpload)
		return in, false
	}
	defer file.Close()

	rel, err := h.media.SaveImage(expenseImageDir, file)
	if err != nil {
		respondWithServiceError(w, "Error saving expense image", err)
		return in, false
	}
	in.Image = &rel
	return in, true
}

func (h *LedgerHandler) discardUpload(in service.ExpenseInput) {
	if in.Image == nil {
		return
	}
	if err := h.media.Delete(*in.Image); err != nil {
		log.Printf("Error removing orphaned upload %s: %v", *in.Image, err)
	}
}

// CreateExpense records an expense
func (h *LedgerHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	in, ok := h.readExpense(w, r)
	if !ok {
		return
	}

	expense, err := h.expenseService.CreateExpense(user, in)
	if err != nil {
		h.discardUpload(in)
		respondWithServiceError(w, "Error creating expense", err)
		return
	}
	respondJSON(w, http.StatusCreated, newExpenseView(h.media, expense))
}

// GetExpense returns one expense
func (h *LedgerHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	expense, err := h.expenseService.GetExpense(user.ID, id)
	if err != nil {
		respondWithServiceError(w, "Error getting expense", err)
		return
	}
	respondJSON(w, http.StatusOK, newExpenseView(h.media, expense))
}

// UpdateExpense changes one of the user's expenses
func (h *LedgerHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	in, ok := h.readExpense(w, r)
	if !ok {
		return
	}

	var previous *string
	if in.Image != nil {
		if current, err := h.expenseService.GetExpense(user.ID, id); err == nil {
			previous = current.Image
		}
	}

	expense, err := h.expenseService.UpdateExpense(user.ID, id, in)
	if err != nil {
		h.discardUpload(in)
		respondWithServiceError(w, "Error updating expense", err)
		return
	}
	if previous != nil {
		if err := h.media.Delete(*previous); err != nil {
			log.Printf("Error removing replaced image %s: %v", *previous, err)
		}
	}
	respondJSON(w, http.StatusOK, newExpenseView(h.media, expense))
}

// DeleteExpense removes one of the user's expenses
func (h *LedgerHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	expense, err := h.expenseService.DeleteExpense(user.ID, id)
	if err != nil {
		respondWithServiceError(w, "Error deleting expense", err)
		return
	}
	if expense.Image != nil {
		if err := h.media.Delete(*expense.Image); err != nil {
			log.Printf("Error removing image %s: %v", *expense.Image, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUdhars lists the user's loans
func (h *LedgerHandler) ListUdhars(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	udhars, err := h.udharService.ListUdhars(user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing udhar", err)
		return
	}
	respondJSON(w, http.StatusOK, lo.Map(udhars, func(u models.Udhar, _ int) UdharView { return newUdharView(&u) }))
}

// CreateUdhar records a loan
func (h *LedgerHandler) CreateUdhar(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var in service.UdharInput
	if !decodeJSON(w, r, &in) {
		return
	}

	udhar, err := h.udharService.CreateUdhar(user.ID, in)
	if err != nil {
		respondWithServiceError(w, "Error creating udhar", err)
		return
	}
	respondJSON(w, http.StatusCreated, newUdharView(udhar))
}

// GetUdhar returns one loan with its repayments
func (h *LedgerHandler) GetUdhar(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	udhar, err := h.udharService.GetUdhar(user.ID, id)
	if err != nil {
		respondWithServiceError(w, "Error getting udhar", err)
		return
	}
	respondJSON(w, http.StatusOK, newUdharView(udhar))
}

// UpdateUdhar changes a loan
func (h *LedgerHandler) UpdateUdhar(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.UdharInput
	if !decodeJSON(w, r, &in) {
		return
	}

	udhar, err := h.udharService.UpdateUdhar(user.ID, id, in)
	if err != nil {
		respondWithServiceError(w, "Error updating udhar", err)
		return
	}
	respondJSON(w, http.StatusOK, newUdharView(udhar))
}

// DeleteUdhar removes a loan
func (h *LedgerHandler) DeleteUdhar(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.udharService.DeleteUdhar(user.ID, id); err != nil {
		respondWithServiceError(w, "Error deleting udhar", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddRepayment records a repayment against a loan
func (h *LedgerHandler) AddRepayment(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.RepaymentInput
	if !decodeJSON(w, r, &in) {
		return
	}

	repayment, err := h.udharService.AddRepayment(user.ID, id, in)
	if err != nil {
		respondWithServiceError(w, "Error adding repayment", err)
		return
	}
	respondJSON(w, http.StatusCreated, newRepaymentView(repayment))
}

// CloseUdhar marks a loan settled
func (h *LedgerHandler) CloseUdhar(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.udharService.CloseUdhar(user.ID, id); err != nil {
		respondWithServiceError(w, "Error closing udhar", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// ListAttendance lists the user's attendance, optionally between ?from= and ?to=
func (h *LedgerHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	query := r.URL.Query()

	entries, err := h.attendanceService.ListAttendance(user.ID, query.Get("from"), query.Get("to"))
	if err != nil {
		respondWithServiceError(w, "Error listing attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, lo.Map(entries, func(a models.Attendance, _ int) AttendanceView { return newAttendanceView(&a) }))
}

// CreateAttendance records a day's attendance
func (h *LedgerHandler) CreateAttendance(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var in service.AttendanceInput
	if !decodeJSON(w, r, &in) {
		return
	}

	entry, err := h.attendanceService.CreateAttendance(user.ID, in)
	if err != nil {
		respondWithServiceError(w, "Error creating attendance", err)
		return
	}
	respondJSON(w, http.StatusCreated, newAttendanceView(entry))
}

// GetAttendance returns one attendance entry
func (h *LedgerHandler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.attendanceService.GetAttendance(user.ID, id)
	if err != nil {
		respondWithServiceError(w, "Error getting attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, newAttendanceView(entry))
}

// UpdateAttendance changes an attendance entry
func (h *LedgerHandler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.AttendanceInput
	if !decodeJSON(w, r, &in) {
		return
	}

	entry, err := h.attendanceService.UpdateAttendance(user.ID, id, in)
	if err != nil {
		respondWithServiceError(w, "Error updating attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, newAttendanceView(entry))
}

// DeleteAttendance removes an attendance entry
func (h *LedgerHandler) DeleteAttendance(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.attendanceService.DeleteAttendance(user.ID, id); err != nil {
		respondWithServiceError(w, "Error deleting attendance", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes lists the user's notes, pinned first
func (h *LedgerHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	notes, err := h.noteService.ListNotes(user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing notes", err)
		return
	}
	respondJSON(w, http.StatusOK, lo.Map(notes, func(n models.Note, _ int) NoteView { return newNoteView(&n) }))
}

// CreateNote saves a note
func (h *LedgerHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var in service.NoteInput
	if !decodeJSON(w, r, &in) {
		return
	}

	note, err := h.noteService.CreateNote(user.ID, in)
	if err != nil {
		respondWithServiceError(w, "Error creating note", err)
		return
	}
	respondJSON(w, http.StatusCreated, newNoteView(note))
}

// GetNote returns one note
func (h *LedgerHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	note, err := h.noteService.GetNote(user.ID, id)
	if err != nil {
		respondWithServiceError(w, "Error getting note", err)
		return
	}
	respondJSON(w, http.StatusOK, newNoteView(note))
}

// UpdateNote changes a note
func (h *LedgerHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.NoteInput
	if !decodeJSON(w, r, &in) {
		return
	}

	note, err := h.noteService.UpdateNote(user.ID, id, in)
	if err != nil {
		respondWithServiceError(w, "Error updating note", err)
		return
	}
	respondJSON(w, http.StatusOK, newNoteView(note))
}

// DeleteNote removes a note
func (h *LedgerHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.noteService.DeleteNote(user.ID, id); err != nil {
		respondWithServiceError(w, "Error deleting note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
