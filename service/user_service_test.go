package service

import (
	"errors"
	"testing"

	"prodline/models"
	"prodline/utils"
)

type fakeUserStore struct {
	users map[string]*models.User
}

func (f *fakeUserStore) GetByUsername(username string) (*models.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) GetByID(id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.UserID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUserStore) UpdatePassword(id int64, passwordHash string) error {
	for _, u := range f.users {
		if u.UserID == id {
			u.PasswordHash = passwordHash
		}
	}
	return nil
}

type fakeEmployeeDirectory struct {
	employees map[int64]*models.Employee
}

func (f *fakeEmployeeDirectory) GetEmployeeByUserID(userID int64) (*models.Employee, error) {
	e, ok := f.employees[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func newTestUserService(t *testing.T) (*UserService, *fakeUserStore) {
	t.Helper()
	hash, err := utils.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	store := &fakeUserStore{users: map[string]*models.User{
		"operator": {UserID: 1, Username: "operator", PasswordHash: hash, Role: "operator", IsActive: true},
		"retired":  {UserID: 2, Username: "retired", PasswordHash: hash, Role: "operator", IsActive: false},
	}}
	directory := &fakeEmployeeDirectory{employees: map[int64]*models.Employee{
		1: {EmployeeID: 11, FirstName: "Asha", LastName: "Kulkarni"},
	}}
	return NewUserService(store, directory, "test-secret", 24), store
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestUserService(t)

	token, user, err := svc.Authenticate("operator", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if token == "" {
		t.Error("empty token")
	}
	if user.UserID != 1 {
		t.Errorf("user id = %d, want 1", user.UserID)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	svc, _ := newTestUserService(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "operator", "wrong"},
		{"unknown user", "ghost", "correct-horse"},
		{"inactive user", "retired", "correct-horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Authenticate(tt.username, tt.password)
			if !errors.Is(err, models.ErrNotFound) {
				t.Errorf("Authenticate(%q, %q) = %v, want ErrNotFound", tt.username, tt.password, err)
			}
		})
	}
}

func TestProfileIncludesEmployee(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, employee, err := svc.Profile(1)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if user.Username != "operator" {
		t.Errorf("username = %q, want operator", user.Username)
	}
	if employee == nil {
		t.Fatal("employee record missing")
	}
	if employee.EmployeeID != 11 {
		t.Errorf("employee id = %d, want 11", employee.EmployeeID)
	}
}

func TestProfileWithoutEmployeeRecord(t *testing.T) {
	svc, _ := newTestUserService(t)

	// user 2 has no employee row; profile still resolves
	user, employee, err := svc.Profile(2)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if user.Username != "retired" {
		t.Errorf("username = %q, want retired", user.Username)
	}
	if employee != nil {
		t.Errorf("employee = %+v, want nil", employee)
	}
}

func TestChangePassword(t *testing.T) {
	svc, store := newTestUserService(t)

	if err := svc.ChangePassword(1, "correct-horse", "new-password-9"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if !utils.CheckPassword(store.users["operator"].PasswordHash, "new-password-9") {
		t.Error("new password does not verify against stored hash")
	}

	err := svc.ChangePassword(1, "stale-password", "another-long-one")
	var ruleErr *models.BusinessRuleError
	if !errors.As(err, &ruleErr) {
		t.Errorf("ChangePassword with wrong current = %v, want BusinessRuleError", err)
	}

	err = svc.ChangePassword(1, "new-password-9", "short")
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("ChangePassword with short new password = %v, want ValidationError", err)
	}
}
