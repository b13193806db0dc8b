package handlers

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"selfmanager/internal/media"
	"selfmanager/internal/models"
	"selfmanager/internal/security"
	"selfmanager/internal/service"
)

const dateLayout = service.DateLayout

type UserSummaryView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type UserView struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
}

type TokenView struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	Recovered bool   `json:"recovered"`
}

type RegisterView struct {
	User    UserView `json:"user"`
	Access  string   `json:"access"`
	Refresh string   `json:"refresh"`
}

type ReadStatusView struct {
	User   UserSummaryView `json:"user"`
	ReadAt time.Time       `json:"read_at"`
}

type RepliedMessageView struct {
	ID          int64              `json:"id"`
	Content     string             `json:"content"`
	Sender      UserSummaryView    `json:"sender"`
	Timestamp   time.Time          `json:"timestamp"`
	MessageType models.MessageKind `json:"message_type"`
}

type MessageView struct {
	ID            int64               `json:"id"`
	Family        int64               `json:"family"`
	Sender        UserSummaryView     `json:"sender"`
	Content       string              `json:"content"`
	Image         *string             `json:"image"`
	Timestamp     time.Time           `json:"timestamp"`
	MessageType   models.MessageKind  `json:"message_type"`
	ReadStatuses  []ReadStatusView    `json:"read_statuses"`
	IsMe          bool                `json:"is_me"`
	IsDeleted     bool                `json:"is_deleted"`
	IsEdited      bool                `json:"is_edited"`
	ReplyToDetail *RepliedMessageView `json:"reply_to_detail"`
}

type PageView[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type FamilyView struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	FamilyCode       string  `json:"family_code"`
	Owner            int64   `json:"owner"`
	OwnerUsername    string  `json:"owner_username"`
	Members          []int64 `json:"members"`
	AllowJoinViaLink bool    `json:"allow_join_via_link"`
}

type FamilyMemberView struct {
	ID        int64     `json:"id"`
	Family    int64     `json:"family"`
	User      int64     `json:"user"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	JoinedAt  time.Time `json:"joined_at"`
}

type JoinRequestView struct {
	ID         int64     `json:"id"`
	Family     int64     `json:"family"`
	FamilyName string    `json:"family_name"`
	User       int64     `json:"user"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type ExpenseView struct {
	ID          int64           `json:"id"`
	Family      *int64          `json:"family"`
	User        int64           `json:"user"`
	Username    string          `json:"username"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Items       []string        `json:"items"`
	Image       *string         `json:"image"`
	UUID        *string         `json:"uuid"`
}

type RepaymentView struct {
	ID        int64           `json:"id"`
	Udhar     int64           `json:"udhar"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"created_at"`
}

type UdharView struct {
	ID         int64            `json:"id"`
	User       int64            `json:"user"`
	PersonName string           `json:"person_name"`
	Amount     decimal.Decimal  `json:"amount"`
	Rate       *decimal.Decimal `json:"rate"`
	Date       string           `json:"date"`
	DueDate    *string          `json:"due_date"`
	Reason     string           `json:"reason"`
	Type       string           `json:"type"`
	IsClosed   bool             `json:"is_closed"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Repayments []RepaymentView  `json:"repayments"`
	TotalPaid  decimal.Decimal  `json:"total_paid"`
	Balance    decimal.Decimal  `json:"balance"`
}

type AttendanceView struct {
	ID     int64   `json:"id"`
	User   int64   `json:"user"`
	Date   string  `json:"date"`
	Status string  `json:"status"`
	Remark *string `json:"remark"`
}

type NoteView struct {
	ID        int64     `json:"id"`
	User      int64     `json:"user"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ColorID   int       `json:"color_id"`
	IsPinned  bool      `json:"is_pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserSummaryView(u models.UserSummary) UserSummaryView {
	return UserSummaryView{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

func newUserView(u *models.User) UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.Profile.PhoneNumber,
	}
}

func newTokenView(pair *security.TokenPair, recovered bool) TokenView {
	return TokenView{Access: pair.Access, Refresh: pair.Refresh, Recovered: recovered}
}

func mediaURL(store *media.Store, rel *string) *string {
	if rel == nil || *rel == "" {
		return nil
	}
	url := store.URL(*rel)
	return &url
}

func newMessageView(store *media.Store, m *models.Message, viewerID int64) MessageView {
	view := MessageView{
		ID:          m.ID,
		Family:      m.FamilyID,
		Sender:      newUserSummaryView(m.Sender),
		Content:     m.Content,
		Image:       mediaURL(store, m.Image),
		Timestamp:   m.CreatedAt,
		MessageType: m.Kind,
		ReadStatuses: lo.Map(m.ReadReceipts, func(r models.ReadReceipt, _ int) ReadStatusView {
			return ReadStatusView{User: newUserSummaryView(r.User), ReadAt: r.ReadAt}
		}),
		IsMe:      m.SenderID == viewerID,
		IsDeleted: m.IsDeleted,
		IsEdited:  m.IsEdited,
	}
	if m.ReplyTo != nil {
		view.ReplyToDetail = &RepliedMessageView{
			ID:          m.ReplyTo.ID,
			Content:     m.ReplyTo.Content,
			Sender:      newUserSummaryView(m.ReplyTo.Sender),
			Timestamp:   m.ReplyTo.CreatedAt,
			MessageType: m.ReplyTo.Kind,
		}
	}
	return view
}

func newFamilyView(f *models.Family) FamilyView {
	members := f.MemberIDs
	if members == nil {
		members = []int64{}
	}
	return FamilyView{
		ID:               f.ID,
		Name:             f.Name,
		FamilyCode:       f.FamilyCode,
		Owner:            f.OwnerID,
		OwnerUsername:    f.OwnerUsername,
		Members:          members,
		AllowJoinViaLink: f.AllowJoinViaLink,
	}
}

func newFamilyMemberView(m models.FamilyMember, _ int) FamilyMemberView {
	return FamilyMemberView{
		ID:        m.ID,
		Family:    m.FamilyID,
		User:      m.UserID,
		Username:  m.Username,
		FirstName: m.FirstName,
		JoinedAt:  m.JoinedAt,
	}
}

func newJoinRequestView(jr models.JoinRequest, _ int) JoinRequestView {
	return JoinRequestView{
		ID:         jr.ID,
		Family:     jr.FamilyID,
		FamilyName: jr.FamilyName,
		User:       jr.UserID,
		Username:   jr.Username,
		FirstName:  jr.FirstName,
		LastName:   jr.LastName,
		Status:     jr.Status,
		CreatedAt:  jr.CreatedAt,
	}
}

func newExpenseView(store *media.Store, e *models.Expense) ExpenseView {
	return ExpenseView{
		ID:          e.ID,
		Family:      e.FamilyID,
		User:        e.UserID,
		Username:    e.Username,
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.Date.Format(dateLayout),
		Description: e.Description,
		Items:       e.Items,
		Image:       mediaURL(store, e.Image),
		UUID:        e.UUID,
	}
}

func newUdharView(u *models.Udhar) UdharView {
	view := UdharView{
		ID:         u.ID,
		User:       u.UserID,
		PersonName: u.PersonName,
		Amount:     u.Amount,
		Rate:       u.Rate,
		Date:       u.Date.Format(dateLayout),
		Reason:     u.Reason,
		Type:       u.Type,
		IsClosed:   u.IsClosed,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
		Repayments: lo.Map(u.Repayments, func(r models.Repayment, _ int) RepaymentView { return newRepaymentView(&r) }),
		TotalPaid:  u.TotalPaid(),
		Balance:    u.Balance(),
	}
	if u.DueDate != nil {
		due := u.DueDate.Format(dateLayout)
		view.DueDate = &due
	}
	return view
}

func newRepaymentView(r *models.Repayment) RepaymentView {
	return RepaymentView{
		ID:        r.ID,
		Udhar:     r.UdharID,
		Amount:    r.Amount,
		Date:      r.Date.Format(dateLayout),
		Note:      r.Note,
		CreatedAt: r.CreatedAt,
	}
}

func newAttendanceView(a *models.Attendance) AttendanceView {
	return AttendanceView{ID: a.ID, User: a.UserID, Date: a.Date.Format(dateLayout), Status: a.Status, Remark: a.Remark}
}

func newNoteView(n *models.Note) NoteView {
	return NoteView{
		ID:        n.ID,
		User:      n.UserID,
		Title:     n.Title,
		Content:   n.Content,
		ColorID:   n.ColorID,
		IsPinned:  n.IsPinned,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
