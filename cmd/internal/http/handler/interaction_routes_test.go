package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInteractions struct {
	InteractionService
	calls []int64
}

func (s *stubInteractions) Like(_ context.Context, _ *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse) {
	s.calls = append(s.calls, itemID)
	switch itemID {
	case 404:
		return nil, apierror.NotFoundError
	case 409:
		return nil, apierror.ItemIsDraftError
	}
	return &contract.InteractionResponse{ItemID: itemID, Active: true, Count: 1}, nil
}

func (s *stubInteractions) Follow(_ context.Context, actor *entity.User, followeeID int64) (*contract.FollowResponse, apierror.ErrorResponse) {
	s.calls = append(s.calls, followeeID)
	if followeeID == actor.ID {
		return nil, apierror.SelfFollowError
	}
	return &contract.FollowResponse{FolloweeID: followeeID, Following: true}, nil
}

func TestInteractionRoute_Like(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		user   *entity.User
		status int
	}{
		{name: "liked", id: "42", user: &entity.User{ID: 5}, status: http.StatusOK},
		{name: "hidden item", id: "404", user: &entity.User{ID: 5}, status: http.StatusNotFound},
		{name: "draft", id: "409", user: &entity.User{ID: 5}, status: http.StatusConflict},
		{name: "bad id", id: "abc", user: &entity.User{ID: 5}, status: http.StatusBadRequest},
		{name: "anonymous", id: "42", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubInteractions{}
			c, rec := newContext(http.MethodPost, "/api/items/"+tt.id+"/like", "")
			c.SetParamNames("id")
			c.SetParamValues(tt.id)
			if tt.user != nil {
				c.Set(utils.ContextUserKey, tt.user)
			}

			require.NoError(t, NewInteractionDefault(svc).Like(c))
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				var body contract.InteractionResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, contract.InteractionResponse{ItemID: 42, Active: true, Count: 1}, body)
			}
		})
	}
}

func TestInteractionRoute_Follow(t *testing.T) {
	svc := &stubInteractions{}
	route := NewInteractionDefault(svc)
	user := &entity.User{ID: 5}

	c, rec := newContext(http.MethodPost, "/api/users/7/follow", "")
	c.SetParamNames("id")
	c.SetParamValues("7")
	c.Set(utils.ContextUserKey, user)
	require.NoError(t, route.Follow(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodPost, "/api/users/5/follow", "")
	c.SetParamNames("id")
	c.SetParamValues("5")
	c.Set(utils.ContextUserKey, user)
	require.NoError(t, route.Follow(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, []int64{7, 5}, svc.calls)
}
