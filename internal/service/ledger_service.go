package service

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"selfmanager/internal/models"
	"selfmanager/internal/repository"
	"selfmanager/internal/validation"
)

// UdharService keeps the user's personal loan ledger
type UdharService struct {
	udhars *repository.UdharRepository
	now    func() time.Time
}

// NewUdharService creates a new udhar service
func NewUdharService(udhars *repository.UdharRepository) *UdharService {
	return &UdharService{udhars: udhars, now: time.Now}
}

// UdharInput is the client-editable part of an udhar entry. Nil fields keep their current value on update.
type UdharInput struct {
	PersonName *string          `json:"person_name" validate:"omitempty,max=255"`
	Amount     *decimal.Decimal `json:"amount"`
	Rate       *decimal.Decimal `json:"rate"`
	Date       *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DueDate    *string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Reason     *string          `json:"reason"`
	Type       *string          `json:"type" validate:"omitempty,oneof=GIVE TAKE"`
}

func parseDate(errs validation.Errors, field, value string) time.Time {
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		errs.Add(field, "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
	}
	return date
}

func (s *UdharService) apply(u *models.Udhar, in UdharInput, creating bool) error {
	errs := validation.Errors{}
	if err := validation.Struct(in); err != nil {
		fieldErrs, ok := validation.AsErrors(err)
		if !ok {
			return err
		}
		errs = fieldErrs
	}

	if creating {
		for field, missing := range map[string]bool{
			"person_name": in.PersonName == nil || strings.TrimSpace(*in.PersonName) == "",
			"amount":      in.Amount == nil,
			"date":        in.Date == nil,
			"type":        in.Type == nil,
		} {
			if missing {
				errs.Add(field, "This field is required.")
			}
		}
	}
	if in.Amount != nil {
		validateAmount(errs, *in.Amount)
	}
	if in.Rate != nil && in.Rate.IsNegative() {
		errs.Add("rate", "Ensure this value is greater than or equal to 0.")
	}

	if in.PersonName != nil {
		u.PersonName = strings.TrimSpace(*in.PersonName)
	}
	if in.Amount != nil {
		u.Amount = *in.Amount
	}
	if in.Rate != nil {
		u.Rate = in.Rate
	}
	if in.Date != nil && errs["date"] == nil {
		u.Date = parseDate(errs, "date", *in.Date)
	}
	if in.DueDate != nil && errs["due_date"] == nil {
		if *in.DueDate == "" {
			u.DueDate = nil
		} else {
			due := parseDate(errs, "due_date", *in.DueDate)
			u.DueDate = &due
		}
	}
	if in.Reason != nil {
		u.Reason = *in.Reason
	}
	if in.Type != nil {
		u.Type = *in.Type
	}
	return errs.Err()
}

// CreateUdhar records a new loan
func (s *UdharService) CreateUdhar(userID int64, in UdharInput) (*models.Udhar, error) {
	udhar := &models.Udhar{UserID: userID}
	if err := s.apply(udhar, in, true); err != nil {
		return nil, err
	}
	return s.udhars.CreateUdhar(udhar)
}

// ListUdhars returns the user's loans
func (s *UdharService) ListUdhars(userID int64) ([]models.Udhar, error) {
	return s.udhars.ListUdhars(userID)
}

// GetUdhar returns one of the user's loans
func (s *UdharService) GetUdhar(userID, udharID int64) (*models.Udhar, error) {
	udhar, err := s.udhars.GetUdharByID(udharID, userID)
	if err != nil {
		return nil, err
	}
	if udhar == nil {
		return nil, ErrUdharNotFound
	}
	return udhar, nil
}

// UpdateUdhar applies in to one of the user's loans
func (s *UdharService) UpdateUdhar(userID, udharID int64, in UdharInput) (*models.Udhar, error) {
	udhar, err := s.GetUdhar(userID, udharID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(udhar, in, false); err != nil {
		return nil, err
	}
	if err := s.udhars.UpdateUdhar(udhar); err != nil {
		return nil, err
	}
	return s.GetUdhar(userID, udharID)
}

// DeleteUdhar removes a loan and its repayments
func (s *UdharService) DeleteUdhar(userID, udharID int64) error {
	if _, err := s.GetUdhar(userID, udharID); err != nil {
		return err
	}
	return s.udhars.DeleteUdhar(udharID, userID)
}

// RepaymentInput is a repayment being recorded
type RepaymentInput struct {
	Amount *decimal.Decimal `json:"amount"`
	Date   *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Note   string           `json:"note"`
}

// AddRepayment records a repayment against one of the user's loans. The date defaults to today.
func (s *UdharService) AddRepayment(userID, udharID int64, in RepaymentInput) (*models.Repayment, error) {
	if _, err := s.GetUdhar(userID, udharID); err != nil {
		return nil, err
	}

	errs := validation.Errors{}
	if err := validation.Struct(in); err != nil {
		fieldErrs, ok := validation.AsErrors(err)
		if !ok {
			return nil, err
		}
		errs = fieldErrs
	}
	if in.Amount == nil {
		errs.Add("amount", "This field is required.")
	} else {
		validateAmount(errs, *in.Amount)
	}

	date := s.now().UTC().Truncate(24 * time.Hour)
	if in.Date != nil && errs["date"] == nil {
		date = parseDate(errs, "date", *in.Date)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	return s.udhars.AddRepayment(&models.Repayment{
		UdharID: udharID,
		Amount:  *in.Amount,
		Date:    date,
		Note:    in.Note,
	})
}

// CloseUdhar marks one of the user's loans settled
func (s *UdharService) CloseUdhar(userID, udharID int64) (*models.Udhar, error) {
	if _, err := s.GetUdhar(userID, udharID); err != nil {
		return nil, err
	}
	if err := s.udhars.CloseUdhar(udharID, userID); err != nil {
		return nil, err
	}
	return s.GetUdhar(userID, udharID)
}

// AttendanceService keeps the user's daily attendance log
type AttendanceService struct {
	attendance *repository.AttendanceRepository
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(attendance *repository.AttendanceRepository) *AttendanceService {
	return &AttendanceService{attendance: attendance}
}

// AttendanceInput is the client-editable part of an attendance entry
type AttendanceInput struct {
	Date   *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status *string `json:"status" validate:"omitempty,max=20"`
	Remark *string `json:"remark"`
}

func (s *AttendanceService) apply(a *models.Attendance, in AttendanceInput, creating bool) error {
	errs := validation.Errors{}
	if err := validation.Struct(in); err != nil {
		fieldErrs, ok := validation.AsErrors(err)
		if !ok {
			return err
		}
		errs = fieldErrs
	}
	if creating && in.Date == nil {
		errs.Add("date", "This field is required.")
	}
	if creating && (in.Status == nil || *in.Status == "") {
		errs.Add("status", "This field is required.")
	}

	if in.Date != nil && errs["date"] == nil {
		a.Date = parseDate(errs, "date", *in.Date)
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.Remark != nil {
		a.Remark = in.Remark
	}
	return errs.Err()
}

func duplicateAttendance(err error) error {
	if errors.Is(err, repository.ErrDuplicateAttendance) {
		return validation.FieldError("non_field_errors", "Attendance for this date already exists.")
	}
	return err
}

// CreateAttendance records a day's attendance. A second entry for the same date is rejected.
func (s *AttendanceService) CreateAttendance(userID int64, in AttendanceInput) (*models.Attendance, error) {
	entry := &models.Attendance{UserID: userID}
	if err := s.apply(entry, in, true); err != nil {
		return nil, err
	}
	created, err := s.attendance.CreateAttendance(entry)
	if err != nil {
		return nil, duplicateAttendance(err)
	}
	return created, nil
}

// ListAttendance returns the user's entries between from and to, either of which may be empty
func (s *AttendanceService) ListAttendance(userID int64, from, to string) ([]models.Attendance, error) {
	errs := validation.Errors{}
	var fromDate, toDate time.Time
	if from != "" {
		fromDate = parseDate(errs, "from", from)
	}
	if to != "" {
		toDate = parseDate(errs, "to", to)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return s.attendance.ListAttendance(userID, fromDate, toDate)
}

// GetAttendance returns one of the user's entries
func (s *AttendanceService) GetAttendance(userID, id int64) (*models.Attendance, error) {
	entry, err := s.attendance.GetAttendance(id, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrAttendanceNotFound
	}
	return entry, nil
}

// UpdateAttendance applies in to one of the user's entries
func (s *AttendanceService) UpdateAttendance(userID, id int64, in AttendanceInput) (*models.Attendance, error) {
	entry, err := s.GetAttendance(userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(entry, in, false); err != nil {
		return nil, err
	}
	if err := s.attendance.UpdateAttendance(entry); err != nil {
		return nil, duplicateAttendance(err)
	}
	return entry, nil
}

// DeleteAttendance removes one of the user's entries
func (s *AttendanceService) DeleteAttendance(userID, id int64) error {
	if _, err := s.GetAttendance(userID, id); err != nil {
		return err
	}
	return s.attendance.DeleteAttendance(id, userID)
}

// NoteService keeps the user's personal notes
type NoteService struct {
	notes *repository.NoteRepository
}

// NewNoteService creates a new note service
func NewNoteService(notes *repository.NoteRepository) *NoteService {
	return &NoteService{notes: notes}
}

// NoteInput is the client-editable part of a note
type NoteInput struct {
	Title    *string `json:"title" validate:"omitempty,max=255"`
	Content  *string `json:"content"`
	ColorID  *int    `json:"color_id" validate:"omitempty,gte=0"`
	IsPinned *bool   `json:"is_pinned"`
}

func (in NoteInput) apply(n *models.Note) {
	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	if in.ColorID != nil {
		n.ColorID = *in.ColorID
	}
	if in.IsPinned != nil {
		n.IsPinned = *in.IsPinned
	}
}

// CreateNote saves a new note
func (s *NoteService) CreateNote(userID int64, in NoteInput) (*models.Note, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	note := &models.Note{UserID: userID}
	in.apply(note)
	return s.notes.CreateNote(note)
}

// ListNotes returns the user's notes, pinned first
func (s *NoteService) ListNotes(userID int64) ([]models.Note, error) {
	return s.notes.ListNotes(userID)
}

// GetNote returns one of the user's notes
func (s *NoteService) GetNote(userID, id int64) (*models.Note, error) {
	note, err := s.notes.GetNote(id, userID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// UpdateNote applies in to one of the user's notes
func (s *NoteService) UpdateNote(userID, id int64, in NoteInput) (*models.Note, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	note, err := s.GetNote(userID, id)
	if err != nil {
		return nil, err
	}
	in.apply(note)
	if err := s.notes.UpdateNote(note); err != nil {
		return nil, err
	}
	return s.GetNote(userID, id)
}

// DeleteNote removes one of the user's notes
func (s *NoteService) DeleteNote(userID, id int64) error {
	if _, err := s.GetNote(userID, id); err != nil {
		return err
	}
	return s.notes.DeleteNote(id, userID)
}
