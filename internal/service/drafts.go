package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/repository"
)

// SaveDraft stores the user's draft, replacing the previous one.
func (s *PostService) SaveDraft(ctx context.Context, userID model.UserID, title, content string) (*model.Draft, error) {
	draft := &model.Draft{UserID: userID, Title: title, Content: content}
	if err := s.drafts.SaveDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("error saving draft: %w", err)
	}
	serviceLogger.Debug().Str("user_id", string(userID)).Msg("Draft saved")
	return draft, nil
}

// GetDraft returns nil without an error when the user has no draft.
func (s *PostService) GetDraft(ctx context.Context, userID model.UserID) (*model.Draft, error) {
	draft, err := s.drafts.GetDraft(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading draft: %w", err)
	}
	return draft, nil
}

func (s *PostService) DeleteDraft(ctx context.Context, userID model.UserID) error {
	if err := s.drafts.DeleteDraft(ctx, userID); err != nil {
		return fmt.Errorf("error deleting draft: %w", err)
	}
	return nil
}

func (s *PostService) ListDrafts(ctx context.Context, userID model.UserID) ([]model.Draft, error) {
	drafts, err := s.drafts.ListDrafts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing drafts: %w", err)
	}
	return drafts, nil
}
