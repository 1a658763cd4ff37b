package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskflow/internal/auth"
	"taskflow/internal/cache"
	apperrors "taskflow/internal/errors"
	"taskflow/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func newTestAccountService(repo *MockUserRepository) (AccountService, *auth.TokenService) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	return NewAccountService(repo, tokens, (*cache.Client)(nil)), tokens
}

func assignID(user *model.User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
}

func TestAccountService_Register(t *testing.T) {
	tests := []struct {
		name          string
		userName      string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful registration",
			userName: "Ann Lee",
			email:    "Ann@X.com",
			password: "secret12",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ann@x.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).
					Run(func(args mock.Arguments) { assignID(args.Get(1).(*model.User)) }).
					Return(nil)
			},
			expectedError: nil,
		},
		{
			name:     "duplicate email",
			userName: "Ann Lee",
			email:    "ann@x.com",
			password: "secret12",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ann@x.com").Return(&model.User{Email: "ann@x.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:     "duplicate email lost race",
			userName: "Ann Lee",
			email:    "ann@x.com",
			password: "secret12",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ann@x.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(apperrors.ErrEmailTaken)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:          "password too short",
			userName:      "Ann Lee",
			email:         "ann@x.com",
			password:      "short",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrPasswordTooShort,
		},
		{
			name:          "missing fields",
			userName:      "",
			email:         "ann@x.com",
			password:      "secret12",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrMissingFields,
		},
		{
			name:          "name too short",
			userName:      "An",
			email:         "ann@x.com",
			password:      "secret12",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrNameLength,
		},
		{
			name:          "invalid email format",
			userName:      "Ann Lee",
			email:         "not-an-email",
			password:      "secret12",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc, tokens := newTestAccountService(mockRepo)
			token, user, err := svc.Register(context.Background(), tt.userName, tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.Equal(t, "ann@x.com", user.Email)
				assert.NotEmpty(t, user.PasswordHash)
				assert.NotEqual(t, tt.password, user.PasswordHash)

				subject, err := tokens.Verify(token)
				assert.NoError(t, err)
				assert.Equal(t, user.ID, subject)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAccountService_Login(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("secret12"), 10)
	userID := uuid.New()

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "Ann@X.com",
			password: "secret12",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ann@x.com").Return(&model.User{
					ID:           userID,
					Email:        "ann@x.com",
					PasswordHash: string(hashed),
				}, nil)
			},
			expectedError: nil,
		},
		{
			name:     "wrong password",
			email:    "ann@x.com",
			password: "wrong-pass",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ann@x.com").Return(&model.User{
					ID:           userID,
					Email:        "ann@x.com",
					PasswordHash: string(hashed),
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "nobody@x.com",
			password: "secret12",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "nobody@x.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc, tokens := newTestAccountService(mockRepo)
			token, user, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)

				subject, err := tokens.Verify(token)
				assert.NoError(t, err)
				assert.Equal(t, userID, subject)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

// Wrong password and unknown email must be indistinguishable to the caller.
func TestAccountService_LoginDoesNotLeakExistence(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("secret12"), 10)

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "real@x.com").Return(&model.User{
		ID:           uuid.New(),
		Email:        "real@x.com",
		PasswordHash: string(hashed),
	}, nil)
	mockRepo.On("FindByEmail", mock.Anything, "ghost@x.com").Return(nil, gorm.ErrRecordNotFound)

	svc, _ := newTestAccountService(mockRepo)

	_, _, errWrongPassword := svc.Login(context.Background(), "real@x.com", "wrong-pass")
	_, _, errUnknownEmail := svc.Login(context.Background(), "ghost@x.com", "secret12")

	assert.Equal(t, errWrongPassword, errUnknownEmail)
}

func TestAccountService_GetProfile(t *testing.T) {
	userID := uuid.New()

	t.Run("found", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, Name: "Ann Lee"}, nil)

		svc, _ := newTestAccountService(mockRepo)
		user, err := svc.GetProfile(context.Background(), userID)

		assert.NoError(t, err)
		assert.Equal(t, "Ann Lee", user.Name)
	})

	t.Run("token subject no longer resolves", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, userID).Return(nil, gorm.ErrRecordNotFound)

		svc, _ := newTestAccountService(mockRepo)
		user, err := svc.GetProfile(context.Background(), userID)

		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		assert.Nil(t, user)
	})
}

func TestAccountService_UpdateProfile(t *testing.T) {
	userID := uuid.New()
	otherID := uuid.New()

	current := func() *model.User {
		return &model.User{ID: userID, Name: "Ann Lee", Email: "ann@x.com", PasswordHash: "old-hash"}
	}

	tests := []struct {
		name          string
		patch         ProfilePatch
		setupMock     func(*MockUserRepository)
		expectedError error
		check         func(*testing.T, *model.User)
	}{
		{
			name:  "rename only",
			patch: ProfilePatch{Name: "Ann B. Lee"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, userID).Return(current(), nil)
				m.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, "Ann B. Lee", u.Name)
				assert.Equal(t, "ann@x.com", u.Email)
			},
		},
		{
			name:  "email change to taken address",
			patch: ProfilePatch{Email: "Taken@X.com"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, userID).Return(current(), nil)
				m.On("FindByEmail", mock.Anything, "taken@x.com").Return(&model.User{ID: otherID, Email: "taken@x.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:  "email change to same address normalized",
			patch: ProfilePatch{Email: "Ann@X.com"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, userID).Return(current(), nil)
				m.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, "ann@x.com", u.Email)
			},
		},
		{
			name:  "new password rehashed",
			patch: ProfilePatch{Password: "fresh-secret"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, userID).Return(current(), nil)
				m.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			check: func(t *testing.T, u *model.User) {
				assert.NotEqual(t, "old-hash", u.PasswordHash)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("fresh-secret")))
			},
		},
		{
			name:  "new password too short",
			patch: ProfilePatch{Password: "short"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, userID).Return(current(), nil)
			},
			expectedError: apperrors.ErrPasswordTooShort,
		},
		{
			name:  "user gone",
			patch: ProfilePatch{Name: "Ann B. Lee"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, userID).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc, _ := newTestAccountService(mockRepo)
			user, err := svc.UpdateProfile(context.Background(), userID, tt.patch)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				tt.check(t, user)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}
