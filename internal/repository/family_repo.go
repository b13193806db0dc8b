package repository

import (
	"database/sql"
	"fmt"
	"time"

	"selfmanager/internal/database"
	"selfmanager/internal/models"
)

// FamilyRepository handles database operations for families, members and join requests
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily creates a new family and adds the owner as a member
func (r *FamilyRepository) CreateFamily(name, code string, ownerID int64, allowJoinViaLink bool) (*models.Family, error) {
	now := time.Now().UTC()
	var familyID int64

	err := r.db.WithTx(func(tx *database.Tx) error {
		var err error
		familyID, err = tx.ExecReturningID(`
			INSERT INTO families (name, family_code, owner_id, allow_join_via_link, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, name, code, ownerID, allowJoinViaLink, now)
		if err != nil {
			return fmt.Errorf("failed to create family: %w", err)
		}

		if _, err := tx.Exec("INSERT INTO family_members (family_id, user_id, joined_at) VALUES (?, ?, ?)", familyID, ownerID, now); err != nil {
			return fmt.Errorf("failed to add family member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetFamilyByID(familyID)
}

// CodeExists reports whether a family already uses the code
func (r *FamilyRepository) CodeExists(code string) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM families WHERE family_code = ?", code).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family code: %w", err)
	}
	return count > 0, nil
}

const familySelect = `
	SELECT f.id, f.name, COALESCE(f.family_code, ''), f.owner_id, u.username, f.allow_join_via_link, f.created_at
	FROM families f
	INNER JOIN users u ON u.id = f.owner_id
`

func (r *FamilyRepository) scanFamily(row *sql.Row) (*models.Family, error) {
	family := &models.Family{}
	err := row.Scan(&family.ID, &family.Name, &family.FamilyCode, &family.OwnerID,
		&family.OwnerUsername, &family.AllowJoinViaLink, &family.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	family.MemberIDs, err = r.GetMemberIDs(family.ID)
	if err != nil {
		return nil, err
	}
	return family, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	return r.scanFamily(r.db.QueryRow(familySelect+"WHERE f.id = ?", familyID))
}

// GetFamilyByCode retrieves a family by its join code
func (r *FamilyRepository) GetFamilyByCode(code string) (*models.Family, error) {
	return r.scanFamily(r.db.QueryRow(familySelect+"WHERE f.family_code = ?", code))
}

// GetUserFamilies retrieves all families a user owns or belongs to
func (r *FamilyRepository) GetUserFamilies(userID int64) ([]models.Family, error) {
	query := familySelect + `
		WHERE f.owner_id = ?
		   OR f.id IN (SELECT family_id FROM family_members WHERE user_id = ?)
		ORDER BY f.created_at ASC, f.id ASC
	`
	rows, err := r.db.Query(query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	families := []models.Family{}
	for rows.Next() {
		var f models.Family
		if err := rows.Scan(&f.ID, &f.Name, &f.FamilyCode, &f.OwnerID, &f.OwnerUsername, &f.AllowJoinViaLink, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate families: %w", err)
	}

	for i := range families {
		if families[i].MemberIDs, err = r.GetMemberIDs(families[i].ID); err != nil {
			return nil, err
		}
	}
	return families, nil
}

// GetFirstFamilyID returns the earliest family the user joined, or nil
func (r *FamilyRepository) GetFirstFamilyID(userID int64) (*int64, error) {
	var id int64
	err := r.db.QueryRow("SELECT family_id FROM family_members WHERE user_id = ? ORDER BY joined_at ASC, id ASC LIMIT 1", userID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get first family: %w", err)
	}
	return &id, nil
}

// UpdateFamily updates the owner-editable family settings
func (r *FamilyRepository) UpdateFamily(familyID int64, name string, allowJoinViaLink bool) error {
	if _, err := r.db.Exec("UPDATE families SET name = ?, allow_join_via_link = ? WHERE id = ?", name, allowJoinViaLink, familyID); err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// DeleteFamily deletes a family; members, requests, messages and expenses cascade
func (r *FamilyRepository) DeleteFamily(familyID int64) error {
	if _, err := r.db.Exec("DELETE FROM families WHERE id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}

// TransferOwnership makes another user the family owner
func (r *FamilyRepository) TransferOwnership(familyID, newOwnerID int64) error {
	if _, err := r.db.Exec("UPDATE families SET owner_id = ? WHERE id = ?", newOwnerID, familyID); err != nil {
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}
	return nil
}

// OwnsAnyFamily reports whether the user owns at least one family
func (r *FamilyRepository) OwnsAnyFamily(userID int64) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM families WHERE owner_id = ?", userID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family ownership: %w", err)
	}
	return count > 0, nil
}

// IsMember reports whether the user is the family owner or one of its members
func (r *FamilyRepository) IsMember(userID, familyID int64) (bool, error) {
	query := `
		SELECT COUNT(*) FROM families f
		WHERE f.id = ?
		  AND (f.owner_id = ? OR EXISTS (
		        SELECT 1 FROM family_members fm WHERE fm.family_id = f.id AND fm.user_id = ?))
	`
	var count int
	if err := r.db.QueryRow(query, familyID, userID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family membership: %w", err)
	}
	return count > 0, nil
}

// IsListedMember reports whether the user appears in the family member set
func (r *FamilyRepository) IsListedMember(userID, familyID int64) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM family_members WHERE user_id = ? AND family_id = ?", userID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family membership: %w", err)
	}
	return count > 0, nil
}

// GetMemberIDs returns the user ids in the family member set
func (r *FamilyRepository) GetMemberIDs(familyID int64) ([]int64, error) {
	rows, err := r.db.Query("SELECT user_id FROM family_members WHERE family_id = ? ORDER BY joined_at ASC, id ASC", familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const memberSelect = `
	SELECT fm.id, fm.family_id, fm.user_id, u.username, u.first_name, fm.joined_at
	FROM family_members fm
	INNER JOIN users u ON fm.user_id = u.id
`

// GetFamilyMembers retrieves all members of a family
func (r *FamilyRepository) GetFamilyMembers(familyID int64) ([]models.FamilyMember, error) {
	rows, err := r.db.Query(memberSelect+"WHERE fm.family_id = ? ORDER BY fm.joined_at ASC, fm.id ASC", familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []models.FamilyMember{}
	for rows.Next() {
		var m models.FamilyMember
		if err := rows.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Username, &m.FirstName, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetFamilyMemberByID retrieves one membership row
func (r *FamilyRepository) GetFamilyMemberByID(id int64) (*models.FamilyMember, error) {
	m := &models.FamilyMember{}
	err := r.db.QueryRow(memberSelect+"WHERE fm.id = ?", id).Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Username, &m.FirstName, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	return m, nil
}

// DeleteFamilyMember removes a membership row
func (r *FamilyRepository) DeleteFamilyMember(id int64) error {
	if _, err := r.db.Exec("DELETE FROM family_members WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	return nil
}

// GetJoinRequest returns the user's join request for the family, if any
func (r *FamilyRepository) GetJoinRequest(familyID, userID int64) (*models.JoinRequest, error) {
	return r.scanJoinRequest(r.db.QueryRow(joinRequestSelect+"WHERE jr.family_id = ? AND jr.user_id = ?", familyID, userID))
}

// GetPendingJoinRequest returns a pending request of the family by ID
func (r *FamilyRepository) GetPendingJoinRequest(requestID, familyID int64) (*models.JoinRequest, error) {
	return r.scanJoinRequest(r.db.QueryRow(joinRequestSelect+"WHERE jr.id = ? AND jr.family_id = ? AND jr.status = ?",
		requestID, familyID, models.JoinRequestPending))
}

// SaveJoinRequest creates a pending request, reopening an earlier decided one
func (r *FamilyRepository) SaveJoinRequest(familyID, userID int64) error {
	now := time.Now().UTC()
	result, err := r.db.Exec("UPDATE join_requests SET status = ?, created_at = ? WHERE family_id = ? AND user_id = ?",
		models.JoinRequestPending, now, familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to reopen join request: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	if _, err := r.db.Exec("INSERT INTO join_requests (family_id, user_id, status, created_at) VALUES (?, ?, ?, ?)",
		familyID, userID, models.JoinRequestPending, now); err != nil {
		return fmt.Errorf("failed to create join request: %w", err)
	}
	return nil
}

// GetPendingJoinRequests lists a family's pending requests, oldest first
func (r *FamilyRepository) GetPendingJoinRequests(familyID int64) ([]models.JoinRequest, error) {
	rows, err := r.db.Query(joinRequestSelect+"WHERE jr.family_id = ? AND jr.status = ? ORDER BY jr.created_at ASC, jr.id ASC",
		familyID, models.JoinRequestPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query join requests: %w", err)
	}
	defer rows.Close()

	requests := []models.JoinRequest{}
	for rows.Next() {
		var jr models.JoinRequest
		if err := rows.Scan(&jr.ID, &jr.FamilyID, &jr.FamilyName, &jr.UserID, &jr.Username,
			&jr.FirstName, &jr.LastName, &jr.Status, &jr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		requests = append(requests, jr)
	}
	return requests, rows.Err()
}

// AcceptJoinRequest marks the request accepted and adds the user as a member
func (r *FamilyRepository) AcceptJoinRequest(jr *models.JoinRequest) error {
	insert := r.db.Dialect.InsertIgnore("INSERT INTO family_members (family_id, user_id, joined_at) VALUES (?, ?, ?)",
		"family_id", "user_id")

	return r.db.WithTx(func(tx *database.Tx) error {
		if _, err := tx.Exec("UPDATE join_requests SET status = ? WHERE id = ?", models.JoinRequestAccepted, jr.ID); err != nil {
			return fmt.Errorf("failed to accept join request: %w", err)
		}
		if _, err := tx.Exec(insert, jr.FamilyID, jr.UserID, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to add family member: %w", err)
		}
		return nil
	})
}

// RejectJoinRequest marks the request rejected
func (r *FamilyRepository) RejectJoinRequest(requestID int64) error {
	if _, err := r.db.Exec("UPDATE join_requests SET status = ? WHERE id = ?", models.JoinRequestRejected, requestID); err != nil {
		return fmt.Errorf("failed to reject join request: %w", err)
	}
	return nil
}

const joinRequestSelect = `
	SELECT jr.id, jr.family_id, f.name, jr.user_id, u.username, u.first_name, u.last_name, jr.status, jr.created_at
	FROM join_requests jr
	INNER JOIN families f ON f.id = jr.family_id
	INNER JOIN users u ON u.id = jr.user_id
`

func (r *FamilyRepository) scanJoinRequest(row *sql.Row) (*models.JoinRequest, error) {
	jr := &models.JoinRequest{}
	err := row.Scan(&jr.ID, &jr.FamilyID, &jr.FamilyName, &jr.UserID, &jr.Username,
		&jr.FirstName, &jr.LastName, &jr.Status, &jr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	return jr, nil
}
