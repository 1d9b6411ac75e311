package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"surveypulse/internal/model"
	"surveypulse/internal/postback"
)

var (
	ErrShareNotFound    = errors.New("postback share not found")
	ErrInvalidShare     = errors.New("invalid postback share")
	ErrUnknownParameter = errors.New("unknown postback parameter")
)

// ShareStore persists inbound postback shares. Not-found is (nil, nil).
type ShareStore interface {
	Create(ctx context.Context, share *model.PostbackShare) (string, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (*model.PostbackShare, error)
	List(ctx context.Context) ([]*model.PostbackShare, error)
	SetStatus(ctx context.Context, uniqueID, status string) (*model.PostbackShare, error)
}

// CreateShareRequest is the admin request for a new inbound URL
type CreateShareRequest struct {
	ThirdPartyName string                          `json:"thirdPartyName" validate:"required,max=100"`
	Parameters     map[string]model.ShareParameter `json:"parameters"`
}

// ShareView is a share plus the URL to hand to the partner
type ShareView struct {
	*model.PostbackShare
	PostbackURL string `json:"postbackUrl"`
}

// ShareService manages the unique inbound postback URLs
type ShareService struct {
	shares   ShareStore
	baseURL  string
	validate *validator.Validate
}

// NewShareService creates a new share service. baseURL is the public
// origin the partner will call back.
func NewShareService(shares ShareStore, baseURL string) *ShareService {
	return &ShareService{
		shares:   shares,
		baseURL:  strings.TrimRight(baseURL, "/"),
		validate: validator.New(),
	}
}

// Create issues a new share with a fresh unique id. Every standard field
// not mentioned in the request is enabled under its own name.
func (s *ShareService) Create(ctx context.Context, req CreateShareRequest) (*ShareView, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShare, err)
	}
	for name := range req.Parameters {
		if !slices.Contains(postback.StandardFields, name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
		}
	}

	params := make(map[string]model.ShareParameter, len(postback.StandardFields))
	for _, field := range postback.StandardFields {
		p, ok := req.Parameters[field]
		if !ok {
			p = model.ShareParameter{Enabled: true}
		}
		p.CustomName = strings.TrimSpace(p.CustomName)
		params[field] = p
	}

	share := &model.PostbackShare{
		UniquePostbackID: uuid.NewString(),
		ThirdPartyName:   strings.TrimSpace(req.ThirdPartyName),
		Parameters:       params,
		Status:           model.StatusActive,
	}
	if _, err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}
	return s.view(share), nil
}

// Get returns one share by its unique id
func (s *ShareService) Get(ctx context.Context, uniqueID string) (*ShareView, error) {
	share, err := s.shares.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, err
	}
	if share == nil {
		return nil, ErrShareNotFound
	}
	return s.view(share), nil
}

// List returns every share, newest first
func (s *ShareService) List(ctx context.Context) ([]*ShareView, error) {
	shares, err := s.shares.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*ShareView, 0, len(shares))
	for _, share := range shares {
		views = append(views, s.view(share))
	}
	return views, nil
}

// SetActive revokes or re-activates a share. Revoked shares answer 404.
func (s *ShareService) SetActive(ctx context.Context, uniqueID string, active bool) (*ShareView, error) {
	status := model.StatusInactive
	if active {
		status = model.StatusActive
	}
	share, err := s.shares.SetStatus(ctx, uniqueID, status)
	if err != nil {
		return nil, err
	}
	if share == nil {
		return nil, ErrShareNotFound
	}
	return s.view(share), nil
}

// URLFor is the inbound URL partners call for the given unique id
func (s *ShareService) URLFor(uniqueID string) string {
	return s.baseURL + "/postback/" + uniqueID
}

func (s *ShareService) view(share *model.PostbackShare) *ShareView {
	return &ShareView{PostbackShare: share, PostbackURL: s.URLFor(share.UniquePostbackID)}
}
