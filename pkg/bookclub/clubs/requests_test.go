package clubs

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
	"github.com/bookclubhq/bookclub/pkg/bookclub/notifications"
)

func TestRequestJoinCreatesPending(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)

	resp := doRequest(router, "POST", "/clubs/"+itoa(club.ID)+"/requests", nil, requester)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response JoinRequestResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Status != string(models.JoinRequestPending) {
		t.Errorf("Expected status pending, got %s", response.Status)
	}

	var count int64
	db.Model(&models.ClubMembership{}).Where("club_id = ? AND user_id = ?", club.ID, requester.ID).Count(&count)
	if count != 0 {
		t.Error("Expected no membership until approval")
	}
}

func TestRequestJoinOpenClubInvalid(t *testing.T) {
	db := setupTestDB(t)
	requests := NewJoinRequests(db)
	owner := createTestUser(t, db, "owner@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityOpen)

	_, err := requests.Request(club.ID, requester.ID)
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
}

func TestRequestJoinDuplicatePendingConflict(t *testing.T) {
	db := setupTestDB(t)
	requests := NewJoinRequests(db)
	owner := createTestUser(t, db, "owner@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)

	if _, err := requests.Request(club.ID, requester.ID); err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	_, err := requests.Request(club.ID, requester.ID)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
}

func TestRequestJoinAlreadyMemberConflict(t *testing.T) {
	db := setupTestDB(t)
	requests := NewJoinRequests(db)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)
	addTestMember(t, db, club, member, models.ClubRoleMember)

	_, err := requests.Request(club.ID, member.ID)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
}

func TestApproveCreatesMembership(t *testing.T) {
	db := setupTestDB(t)
	router, sink := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)

	requests := NewJoinRequests(db)
	req, err := requests.Request(club.ID, requester.ID)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	resp := doRequest(router, "POST", "/clubs/"+itoa(club.ID)+"/requests/"+itoa(req.ID)+"/approve", nil, owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var m models.ClubMembership
	if err := db.Where("club_id = ? AND user_id = ?", club.ID, requester.ID).First(&m).Error; err != nil {
		t.Fatalf("Expected membership to exist: %v", err)
	}
	if m.Role != models.ClubRoleMember {
		t.Errorf("Expected role member, got %s", m.Role)
	}

	var stored models.ClubJoinRequest
	db.First(&stored, req.ID)
	if stored.Status != models.JoinRequestApproved {
		t.Errorf("Expected request approved, got %s", stored.Status)
	}

	kinds := sink.Kinds()
	if len(kinds) != 1 || kinds[0] != notifications.KindJoinRequestApproved {
		t.Errorf("Expected an approval notification, got %v", kinds)
	}
}

func TestApproveByAdmin(t *testing.T) {
	db := setupTestDB(t)
	requests := NewJoinRequests(db)
	owner := createTestUser(t, db, "owner@example.com")
	admin := createTestUser(t, db, "admin@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)
	addTestMember(t, db, club, admin, models.ClubRoleAdmin)

	req, _ := requests.Request(club.ID, requester.ID)
	if _, err := requests.Approve(req.ID, admin.ID); err != nil {
		t.Errorf("Expected admin to approve, got %v", err)
	}
}

func TestApproveByMemberForbidden(t *testing.T) {
	db := setupTestDB(t)
	requests := NewJoinRequests(db)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)
	addTestMember(t, db, club, member, models.ClubRoleMember)

	req, _ := requests.Request(club.ID, requester.ID)
	_, err := requests.Approve(req.ID, member.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}

	var stored models.ClubJoinRequest
	db.First(&stored, req.ID)
	if stored.Status != models.JoinRequestPending {
		t.Errorf("Expected request still pending, got %s", stored.Status)
	}
}

func TestApproveRaceMarksRejected(t *testing.T) {
	db := setupTestDB(t)
	requests := NewJoinRequests(db)
	owner := createTestUser(t, db, "owner@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)

	req, _ := requests.Request(club.ID, requester.ID)

	// The requester got in through another path before the approval landed
	addTestMember(t, db, club, requester, models.ClubRoleMember)

	_, err := requests.Approve(req.ID, owner.ID)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	var stored models.ClubJoinRequest
	db.First(&stored, req.ID)
	if stored.Status != models.JoinRequestRejected {
		t.Errorf("Expected request flipped to rejected, got %s", stored.Status)
	}

	var count int64
	db.Model(&models.ClubMembership{}).Where("club_id = ? AND user_id = ?", club.ID, requester.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly one membership, got %d", count)
	}
}

func TestApproveTwiceNotFound(t *testing.T) {
	db := setupTestDB(t)
	requests := NewJoinRequests(db)
	owner := createTestUser(t, db, "owner@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)

	req, _ := requests.Request(club.ID, requester.ID)
	if _, err := requests.Approve(req.ID, owner.ID); err != nil {
		t.Fatalf("First approve failed: %v", err)
	}
	_, err := requests.Approve(req.ID, owner.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a resolved request, got %v", err)
	}
}

func TestRejectLeavesNoMembership(t *testing.T) {
	db := setupTestDB(t)
	router, sink := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)

	requests := NewJoinRequests(db)
	req, _ := requests.Request(club.ID, requester.ID)

	resp := doRequest(router, "POST", "/clubs/"+itoa(club.ID)+"/requests/"+itoa(req.ID)+"/reject", nil, owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var stored models.ClubJoinRequest
	db.First(&stored, req.ID)
	if stored.Status != models.JoinRequestRejected {
		t.Errorf("Expected request rejected, got %s", stored.Status)
	}

	var count int64
	db.Model(&models.ClubMembership{}).Where("club_id = ? AND user_id = ?", club.ID, requester.ID).Count(&count)
	if count != 0 {
		t.Error("Expected no membership after rejection")
	}

	kinds := sink.Kinds()
	if len(kinds) != 1 || kinds[0] != notifications.KindJoinRequestRejected {
		t.Errorf("Expected a rejection notification, got %v", kinds)
	}
}

func TestRequestAgainAfterRejection(t *testing.T) {
	db := setupTestDB(t)
	requests := NewJoinRequests(db)
	owner := createTestUser(t, db, "owner@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)

	req, _ := requests.Request(club.ID, requester.ID)
	if _, err := requests.Reject(req.ID, owner.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if _, err := requests.Request(club.ID, requester.ID); err != nil {
		t.Errorf("Expected a fresh request after rejection, got %v", err)
	}
}

func TestListJoinRequestsStaffOnly(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")
	requester := createTestUser(t, db, "requester@example.com")
	club := createTestClub(t, db, owner, models.ClubVisibilityApproval)
	addTestMember(t, db, club, member, models.ClubRoleMember)

	requests := NewJoinRequests(db)
	requests.Request(club.ID, requester.ID)

	resp := doRequest(router, "GET", "/clubs/"+itoa(club.ID)+"/requests", nil, owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var list []JoinRequestResponse
	json.Unmarshal(resp.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Errorf("Expected 1 pending request, got %d", len(list))
	}

	resp = doRequest(router, "GET", "/clubs/"+itoa(club.ID)+"/requests", nil, member)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for plain member, got %d", resp.Code)
	}
}
