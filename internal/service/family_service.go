package service

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"selfmanager/internal/credentials"
	"selfmanager/internal/models"
	"selfmanager/internal/repository"
	"selfmanager/internal/validation"
)

const familyCodeAttempts = 10

// FamilyService handles families, their members and join requests
type FamilyService struct {
	families *repository.FamilyRepository
	users    *repository.UserRepository
	chat     *ChatService
}

// NewFamilyService creates a new family service
func NewFamilyService(families *repository.FamilyRepository, users *repository.UserRepository, chat *ChatService) *FamilyService {
	return &FamilyService{
		families: families,
		users:    users,
		chat:     chat,
	}
}

// CreateFamily creates a new family owned by the user, with a fresh join code
func (s *FamilyService) CreateFamily(ownerID int64, name string, allowJoinViaLink bool) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.FieldError("name", "This field is required.")
	}

	code, err := s.uniqueFamilyCode()
	if err != nil {
		return nil, err
	}

	family, err := s.families.CreateFamily(name, code, ownerID, allowJoinViaLink)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}
	log.Printf("Family %d created by user %d", family.ID, ownerID)
	return family, nil
}

func (s *FamilyService) uniqueFamilyCode() (string, error) {
	for i := 0; i < familyCodeAttempts; i++ {
		code, err := credentials.GenerateFamilyCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate family code: %w", err)
		}
		exists, err := s.families.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("failed to generate a unique family code")
}

// ListFamilies returns the families the user owns or belongs to
func (s *FamilyService) ListFamilies(userID int64) ([]models.Family, error) {
	families, err := s.families.GetUserFamilies(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user families: %w", err)
	}
	return families, nil
}

// GetFamily returns a family the user belongs to. Other families look missing.
func (s *FamilyService) GetFamily(userID, familyID int64) (*models.Family, error) {
	family, err := s.families.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	member, err := s.families.IsMember(userID, familyID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

func (s *FamilyService) getOwnedFamily(userID, familyID int64, detail string) (*models.Family, error) {
	family, err := s.GetFamily(userID, familyID)
	if err != nil {
		return nil, err
	}
	if family.OwnerID != userID {
		return nil, deny(ReasonNotOwner, detail)
	}
	return family, nil
}

// FamilyUpdate holds the owner-editable family settings. Nil fields are left unchanged.
type FamilyUpdate struct {
	Name             *string
	AllowJoinViaLink *bool
}

// UpdateFamily changes the family settings. Only the owner may do this.
func (s *FamilyService) UpdateFamily(userID, familyID int64, upd FamilyUpdate) (*models.Family, error) {
	family, err := s.getOwnedFamily(userID, familyID, "Only the family owner can modify family settings.")
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, validation.FieldError("name", "This field may not be blank.")
		}
		family.Name = name
	}
	if upd.AllowJoinViaLink != nil {
		family.AllowJoinViaLink = *upd.AllowJoinViaLink
	}

	if err := s.families.UpdateFamily(familyID, family.Name, family.AllowJoinViaLink); err != nil {
		return nil, err
	}
	return family, nil
}

// DeleteFamily deletes the family with its chat and shared expenses. Only the owner may do this.
func (s *FamilyService) DeleteFamily(userID, familyID int64) error {
	if _, err := s.getOwnedFamily(userID, familyID, "Only the family owner can delete the family."); err != nil {
		return err
	}
	if err := s.families.DeleteFamily(familyID); err != nil {
		return err
	}
	log.Printf("Family %d deleted by user %d", familyID, userID)
	return nil
}

// ListMembers returns the members of a family the user belongs to
func (s *FamilyService) ListMembers(userID, familyID int64) ([]models.FamilyMember, error) {
	if _, err := s.GetFamily(userID, familyID); err != nil {
		return nil, err
	}
	return s.families.GetFamilyMembers(familyID)
}

// GetByCode looks a family up by its join code, ignoring case
func (s *FamilyService) GetByCode(code string) (*models.Family, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, badRequest("Code is required")
	}
	family, err := s.families.GetFamilyByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// RequestToJoin files a join request that the family owner must approve
func (s *FamilyService) RequestToJoin(userID int64, code string, viaLink bool) error {
	if strings.TrimSpace(code) == "" {
		return badRequest("Family code is required")
	}
	family, err := s.GetByCode(code)
	if err != nil {
		return err
	}

	if viaLink && !family.AllowJoinViaLink {
		return deny(ReasonLinkJoinDisabled, "Joining via link is disabled for this family.")
	}

	member, err := s.families.IsListedMember(userID, family.ID)
	if err != nil {
		return err
	}
	if member {
		return badRequest("You are already a member of this family")
	}

	existing, err := s.families.GetJoinRequest(family.ID, userID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == models.JoinRequestPending {
		return badRequest("You have already sent a request to join this family.")
	}

	if err := s.families.SaveJoinRequest(family.ID, userID); err != nil {
		return err
	}
	log.Printf("User %d requested to join family %d", userID, family.ID)
	return nil
}

// PendingRequests lists join requests awaiting the owner's decision
func (s *FamilyService) PendingRequests(userID, familyID int64) ([]models.JoinRequest, error) {
	if _, err := s.getOwnedFamily(userID, familyID, "Only the owner can view pending requests."); err != nil {
		return nil, err
	}
	return s.families.GetPendingJoinRequests(familyID)
}

// HandleRequest approves or rejects a pending join request. Approval adds the
// member and announces the join in the family chat.
func (s *FamilyService) HandleRequest(userID, familyID, requestID int64, approve bool) error {
	if _, err := s.getOwnedFamily(userID, familyID, "Only the owner can handle requests."); err != nil {
		return err
	}

	jr, err := s.families.GetPendingJoinRequest(requestID, familyID)
	if err != nil {
		return err
	}
	if jr == nil {
		return ErrJoinRequestNotFound
	}

	if !approve {
		return s.families.RejectJoinRequest(jr.ID)
	}

	if err := s.families.AcceptJoinRequest(jr); err != nil {
		return err
	}

	name := jr.FirstName
	if name == "" {
		name = jr.Username
	}
	if _, err := s.chat.PostSystemMessage(familyID, jr.UserID, fmt.Sprintf("%s joined the family", name)); err != nil {
		log.Printf("Failed to announce new member %d in family %d: %v", jr.UserID, familyID, err)
	}
	return nil
}

// TransferOwnership hands the family to another of its members
func (s *FamilyService) TransferOwnership(userID, familyID, newOwnerID int64) (*models.Family, error) {
	if _, err := s.getOwnedFamily(userID, familyID, "Only the owner can transfer ownership."); err != nil {
		return nil, err
	}
	if newOwnerID == 0 {
		return nil, badRequest("New owner ID is required")
	}

	newOwner, err := s.users.GetUserByID(newOwnerID)
	if err != nil {
		return nil, err
	}
	if newOwner == nil {
		return nil, ErrUserNotFound
	}

	member, err := s.families.IsListedMember(newOwnerID, familyID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, badRequest("New owner must be a member of the family.")
	}

	if err := s.families.TransferOwnership(familyID, newOwnerID); err != nil {
		return nil, err
	}
	log.Printf("Family %d transferred from user %d to user %d", familyID, userID, newOwnerID)
	return s.families.GetFamilyByID(familyID)
}

// RemoveMember removes a membership. Members may leave and the owner may remove
// anyone except themself.
func (s *FamilyService) RemoveMember(userID, memberID int64) error {
	m, err := s.families.GetFamilyMemberByID(memberID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrMemberNotFound
	}

	family, err := s.families.GetFamilyByID(m.FamilyID)
	if err != nil {
		return err
	}
	if family == nil {
		return ErrMemberNotFound
	}
	member, err := s.families.IsMember(userID, family.ID)
	if err != nil {
		return err
	}
	if !member {
		return ErrMemberNotFound
	}

	if m.UserID != userID && family.OwnerID != userID {
		return deny(ReasonPermissionDenied, "Permission denied.")
	}
	if m.UserID == family.OwnerID {
		return badRequest("The family owner cannot leave. Transfer ownership or delete the family instead.")
	}

	return s.families.DeleteFamilyMember(memberID)
}
