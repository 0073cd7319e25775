package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AgronAfrica/LeedsLink/internal/auth"
	"github.com/AgronAfrica/LeedsLink/internal/config"
	"github.com/AgronAfrica/LeedsLink/internal/db"
	"github.com/AgronAfrica/LeedsLink/internal/models"
)

// ErrEmailTaken is returned when registering with an address already in use.
var ErrEmailTaken = errors.New("email address already registered")

// ErrInvalidCredentials is returned when authentication fails. Wrong email
// and wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// IUserService defines the interface for user account operations.
type IUserService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

const usersCollection = "users"

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        models.UserRole
	Address     string
	Postcode    string
	PhoneNumber string
	Description string
}

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: db, cfg: cfg}
}

// Register validates the input, hashes the password and inserts the user.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" || email == "" {
		return nil, fmt.Errorf("name and email are required")
	}
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("invalid user role: %q", input.Role)
	}
	if len(input.Password) < s.cfg.PasswordMinLength {
		return nil, fmt.Errorf("password must be at least %d characters", s.cfg.PasswordMinLength)
	}

	if _, err := s.FindUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	collection := s.db.Collection(usersCollection)
	var user *models.User
	operation := func() error {
		user = &models.User{
			ID:           uuid.New(),
			Name:         input.Name,
			Email:        email,
			PasswordHash: hash,
			Role:         input.Role,
			Address:      input.Address,
			Postcode:     input.Postcode,
			PhoneNumber:  input.PhoneNumber,
			Description:  input.Description,
			CreatedAt:    time.Now().UTC(),
		}
		_, insertErr := collection.InsertOne(ctx, user)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert user %s: %w", email, err)
	}

	return user, nil
}

// Authenticate verifies an email/password pair.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindUserByID finds a user by id.
func (s *userService) FindUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user %s: %w", userID, err)
	}
	return &user, nil
}

// FindUserByEmail finds a user by email address (stored lower-cased).
func (s *userService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}
	return &user, nil
}
