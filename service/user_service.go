package service

import (
	"errors"

	"prodline/models"
	"prodline/utils"
)

// UserStore is the persistence surface for login accounts
type UserStore interface {
	GetByUsername(username string) (*models.User, error)
	GetByID(id int64) (*models.User, error)
	UpdatePassword(id int64, passwordHash string) error
}

// EmployeeDirectory resolves login users to employee records
type EmployeeDirectory interface {
	GetEmployeeByUserID(userID int64) (*models.Employee, error)
}

// UserService handles authentication and account maintenance
type UserService struct {
	users       UserStore
	employees   EmployeeDirectory
	jwtSecret   string
	expiryHours int
}

// NewUserService creates a new user service
func NewUserService(users UserStore, employees EmployeeDirectory, jwtSecret string, expiryHours int) *UserService {
	return &UserService{users: users, employees: employees, jwtSecret: jwtSecret, expiryHours: expiryHours}
}

// Authenticate verifies credentials and returns a signed token with the user.
// Bad credentials and unknown usernames both surface as a not-found error so
// the response does not reveal which half was wrong.
func (s *UserService) Authenticate(username, password string) (string, *models.User, error) {
	if username == "" {
		return "", nil, models.NewValidationError("username")
	}
	if password == "" {
		return "", nil, models.NewValidationError("password")
	}

	user, err := s.users.GetByUsername(username)
	if err != nil {
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, models.ErrNotFound
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return "", nil, models.ErrNotFound
	}

	token, err := utils.GenerateJWT(user.UserID, user.Role, s.jwtSecret, s.expiryHours)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Profile returns the user with their employee record. Accounts without an
// employee record (service accounts, admins) get a nil employee.
func (s *UserService) Profile(userID int64) (*models.User, *models.Employee, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}
	employee, err := s.employees.GetEmployeeByUserID(userID)
	if errors.Is(err, models.ErrNotFound) {
		return user, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return user, employee, nil
}

// ChangePassword verifies the current password and stores a new hash
func (s *UserService) ChangePassword(userID int64, currentPassword, newPassword string) error {
	if newPassword == "" {
		return models.NewValidationError("new_password")
	}
	if len(newPassword) < 8 {
		return &models.ValidationError{
			Field:   "new_password",
			Message: "new password must be at least 8 characters",
		}
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, currentPassword) {
		return models.NewBusinessRuleError("password_mismatch",
			"current password is incorrect")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(userID, hash)
}
