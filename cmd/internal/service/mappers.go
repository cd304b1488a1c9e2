package service

import (
	"strings"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"
	"circlenotes/cmd/internal/domain/policy"
	"circlenotes/cmd/internal/utils"
)

// publishedReadableBy matches the published items actor may read.
func publishedReadableBy(actor *entity.User) filter.Expr {
	return filter.And{
		policy.ReadableBy(actor),
		filter.Eq{Field: "status", Value: entity.ItemStatusNormal},
	}
}

func joinTags(tags []string) string {
	lower := make([]string, len(tags))
	for i, t := range tags {
		lower[i] = strings.ToLower(t)
	}
	return strings.Join(lower, " ")
}

func splitTags(tags string) []string {
	fields := strings.Fields(tags)
	if fields == nil {
		return []string{}
	}
	return fields
}

func toItemResponse(item *entity.Item, body *string) *contract.ItemResponse {
	resp := &contract.ItemResponse{
		ID:          item.ID,
		OwnerID:     item.OwnerID,
		ContainerID: item.ContainerID,
		Title:       item.Title,
		Tags:        splitTags(item.Tags),
		Body:        body,
		HasDraft:    item.Body.Draft != nil,
		Status:      string(item.Status),
		LikeCount:   item.LikeCount,
		StockCount:  item.StockCount,
		AccessCount: item.AccessCount,
		CreatedAt:   utils.FormatEpoch(item.CreatedAt),
		UpdatedAt:   utils.FormatEpoch(item.UpdatedAt),
		PublishedAt: utils.FormatEpochPtr(item.PublishedAt),
	}

	if item.Owner != nil {
		resp.Owner = toUserResponse(item.Owner)
	}
	return resp
}

func toItemResponses(items []*entity.Item) []*contract.ItemResponse {
	resp := make([]*contract.ItemResponse, len(items))
	for i, item := range items {
		resp[i] = toItemResponse(item, nil)
	}
	return resp
}

func toUserResponse(user *entity.User) *contract.UserResponse {
	return &contract.UserResponse{
		ID:          user.ID,
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		Perms:       int64(user.Permissions),
		CreatedAt:   utils.FormatEpoch(user.CreatedAt),
		UpdatedAt:   utils.FormatEpoch(user.UpdatedAt),
	}
}

func toContainerResponse(c *entity.Container) *contract.ContainerResponse {
	return &contract.ContainerResponse{
		ID:              c.ID,
		Handle:          c.Handle,
		Name:            c.Name,
		Description:     c.Description,
		Status:          string(c.Status),
		Type:            string(c.Type),
		ReadPermission:  string(c.ReadPermission),
		WritePermission: string(c.WritePermission),
		WriteCondition:  string(c.WriteCondition),
		JoinCondition:   string(c.JoinCondition),
		CreatedByID:     c.CreatedByID,
		CreatedAt:       utils.FormatEpoch(c.CreatedAt),
		UpdatedAt:       utils.FormatEpoch(c.UpdatedAt),
	}
}

func toMembershipResponse(m *entity.Membership) *contract.MembershipResponse {
	return &contract.MembershipResponse{
		UserID:      m.UserID,
		ContainerID: m.ContainerID,
		Role:        string(m.Role),
		CreatedAt:   utils.FormatEpoch(m.CreatedAt),
	}
}
