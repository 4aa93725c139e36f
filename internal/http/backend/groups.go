package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwise1/bookgroups/internal/model"
)

const (
	OpFindGroups   = "FindGroups"
	OpCreateGroup  = "CreateGroup"
	OpGetGroup     = "GetGroup"
	OpJoinGroup    = "JoinGroup"
	OpLeaveGroup   = "LeaveGroup"
	OpUpdateGroup  = "UpdateGroup"
	OpUserGroups   = "UserGroups"
	OpDeleteMember = "DeleteMember"
	OpBestGroups   = "BestGroups"
)

const (
	MsgGroupsNotFound      = "reading group data not found"
	MsgGroupsFailed        = "failed to look up reading groups"
	MsgCreateMissingID     = "group was created but its group_id could not be read"
	MsgCreateFailed        = "failed to create reading group"
	MsgGroupDetailNotFound = "reading group detail data not found"
	MsgGroupDetailFailed   = "failed to fetch reading group detail data"
	MsgJoinFailed          = "failed to join reading group"
	MsgLeaveFailed         = "failed to leave reading group"
	MsgUpdateFailed        = "failed to update reading group"
	MsgUserGroupsFailed    = "failed to load groups"
	MsgDeleteMemberFailed  = "failed to remove group member"
	MsgBestGroupsFailed    = "failed to load best reading groups"
)

// FindQuery is the query string of the recruiting-group search.
type FindQuery struct {
	Page  int `url:"page"`
	Limit int `url:"limit"`
}

type createGroupRequest struct {
	model.GroupForm
	RecruitmentStatus bool `json:"recruitment_status"`
}

type createGroupResponse struct {
	GroupID model.GroupID `json:"group_id"`
}

type groupDetailResponse struct {
	Group *model.Group `json:"group"`
}

// FindGroups returns one page of recruiting groups.
// Endpoint: GET /groups/find?page=&limit=
func (c *Client) FindGroups(ctx context.Context, page int) (model.Page[model.Group], error) {
	if page < 1 {
		page = 1
	}

	var result *model.Page[model.Group]
	err := c.send(ctx, http.MethodGet, "/groups/find", FindQuery{Page: page, Limit: c.pageLimit()}, nil, &result)
	if err != nil {
		return model.Page[model.Group]{}, fail(ctx, OpFindGroups, classify(err), MsgGroupsFailed, err)
	}
	if result == nil {
		return model.Page[model.Group]{}, fail(ctx, OpFindGroups, ErrorCodeEmptyResponse, MsgGroupsNotFound, nil)
	}
	return *result, nil
}

// CreateGroup opens a new recruiting group and returns its id.
// Endpoint: POST /groups
func (c *Client) CreateGroup(ctx context.Context, form model.GroupForm) (model.GroupID, error) {
	body := createGroupRequest{GroupForm: form, RecruitmentStatus: true}

	var result createGroupResponse
	if err := c.send(ctx, http.MethodPost, "/groups", nil, body, &result); err != nil {
		return 0, fail(ctx, OpCreateGroup, classify(err), MsgCreateFailed, err)
	}
	if result.GroupID == 0 {
		return 0, fail(ctx, OpCreateGroup, ErrorCodeEmptyResponse, MsgCreateMissingID, nil)
	}
	return result.GroupID, nil
}

// GetGroup fetches the detail view of one group.
// Endpoint: GET /groups/{id}
func (c *Client) GetGroup(ctx context.Context, id model.GroupID) (model.Group, error) {
	var result groupDetailResponse
	if err := c.send(ctx, http.MethodGet, fmt.Sprintf("/groups/%d", id), nil, nil, &result); err != nil {
		code := classify(err)
		if code == ErrorCodeNotFound {
			return model.Group{}, fail(ctx, OpGetGroup, code, MsgGroupDetailNotFound, err)
		}
		return model.Group{}, fail(ctx, OpGetGroup, code, MsgGroupDetailFailed, err)
	}
	if result.Group == nil {
		return model.Group{}, fail(ctx, OpGetGroup, ErrorCodeNotFound, MsgGroupDetailNotFound, nil)
	}
	return *result.Group, nil
}

// JoinGroup adds the current user to the group.
// Endpoint: POST /groups/user/{id}/join
func (c *Client) JoinGroup(ctx context.Context, id model.GroupID) error {
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/groups/user/%d/join", id), nil, nil, nil); err != nil {
		return fail(ctx, OpJoinGroup, classify(err), MsgJoinFailed, err)
	}
	return nil
}

// LeaveGroup removes the current user from the group.
// Endpoint: POST /groups/user/{id}/leave
func (c *Client) LeaveGroup(ctx context.Context, id model.GroupID) error {
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/groups/user/%d/leave", id), nil, nil, nil); err != nil {
		return fail(ctx, OpLeaveGroup, classify(err), MsgLeaveFailed, err)
	}
	return nil
}

// UpdateGroup applies a partial update.
// Endpoint: PATCH /groups/{id}
func (c *Client) UpdateGroup(ctx context.Context, id model.GroupID, patch model.GroupPatch) error {
	if patch.IsEmpty() {
		return fail(ctx, OpUpdateGroup, ErrorCodeInvalidArgument, MsgUpdateFailed, fmt.Errorf("empty patch for group %d", id))
	}
	if err := c.send(ctx, http.MethodPatch, fmt.Sprintf("/groups/%d", id), nil, patch, nil); err != nil {
		return fail(ctx, OpUpdateGroup, classify(err), MsgUpdateFailed, err)
	}
	return nil
}

// UserGroups lists the groups a user belongs to; an empty userID means the
// authenticated caller.
// Endpoint: GET /groups/user-group[/{userID}]
func (c *Client) UserGroups(ctx context.Context, userID string) ([]model.Group, error) {
	endpoint := "/groups/user-group"
	if userID != "" {
		endpoint += "/" + userID
	}

	var result []model.Group
	if err := c.send(ctx, http.MethodGet, endpoint, nil, nil, &result); err != nil {
		return nil, fail(ctx, OpUserGroups, classify(err), MsgUserGroupsFailed, err)
	}
	if result == nil {
		result = []model.Group{}
	}
	return result, nil
}

// DeleteMember lets the group lead remove a member.
// Endpoint: DELETE /groups/{groupID}/delete-user/{userID}
func (c *Client) DeleteMember(ctx context.Context, groupID model.GroupID, userID string) error {
	if userID == "" {
		return fail(ctx, OpDeleteMember, ErrorCodeInvalidArgument, MsgDeleteMemberFailed, fmt.Errorf("empty user id for group %d", groupID))
	}
	endpoint := fmt.Sprintf("/groups/%d/delete-user/%s", groupID, userID)
	if err := c.send(ctx, http.MethodDelete, endpoint, nil, nil, nil); err != nil {
		return fail(ctx, OpDeleteMember, classify(err), MsgDeleteMemberFailed, err)
	}
	return nil
}

// BestGroups returns the recruitment list featured on the home feed.
// Endpoint: GET /groups/best
func (c *Client) BestGroups(ctx context.Context) ([]model.Group, error) {
	var result []model.Group
	if err := c.send(ctx, http.MethodGet, "/groups/best", nil, nil, &result); err != nil {
		return nil, fail(ctx, OpBestGroups, classify(err), MsgBestGroupsFailed, err)
	}
	if result == nil {
		return nil, fail(ctx, OpBestGroups, ErrorCodeEmptyResponse, MsgBestGroupsFailed, nil)
	}
	return result, nil
}
