package rest

import (
	"context"

	"github.com/bwise1/bookgroups/internal/model"
	"github.com/bwise1/bookgroups/internal/query"
	"github.com/bwise1/bookgroups/util"
	"github.com/bwise1/bookgroups/util/values"
)

const anonymousViewer = "anonymous"

var (
	keyBestGroup     = query.Key{"bestGroup"}
	keyBestBookshelf = query.Key{"bestBookshelf"}
	keyGroupList     = query.Key{"group"}
)

func keyRecruitDetail(id model.GroupID) query.Key {
	return query.Key{"recruitDetail", id.String()}
}

// detailCacheKey scopes the detail entry to the viewer, since membership and
// leadership flags differ per user.
func detailCacheKey(ctx context.Context, id model.GroupID) query.Key {
	viewer, err := util.GetUserIDFromContext(ctx)
	if err != nil {
		viewer = anonymousViewer
	}
	return append(keyRecruitDetail(id), viewer)
}

// GroupDetail returns the group through the query cache.
func (api *API) GroupDetail(ctx context.Context, id model.GroupID) (model.Group, error) {
	return query.Fetch(ctx, api.Deps.Cache, detailCacheKey(ctx, id), func(ctx context.Context) (model.Group, error) {
		return api.Deps.Backend.GetGroup(ctx, id)
	})
}

// invalidateGroup drops every cached view that may show group id.
func (api *API) invalidateGroup(id model.GroupID) {
	api.Deps.Cache.Invalidate(keyRecruitDetail(id))
	api.Deps.Cache.Invalidate(keyGroupList)
	api.Deps.Cache.Invalidate(keyBestGroup)
}

func (api *API) CreateGroupHelper(ctx context.Context, form model.GroupForm) (model.GroupID, string, string, error) {
	id, err := api.Deps.Backend.CreateGroup(ctx, form)
	if err != nil {
		return 0, backendStatus(err), err.Error(), err
	}

	api.Deps.Cache.Invalidate(keyGroupList)
	api.Deps.Cache.Invalidate(keyBestGroup)
	return id, values.Created, "group created successfully", nil
}

func (api *API) UpdateGroupHelper(ctx context.Context, id model.GroupID, patch model.GroupPatch) (string, string, error) {
	if err := api.Deps.Backend.UpdateGroup(ctx, id, patch); err != nil {
		return backendStatus(err), err.Error(), err
	}

	api.invalidateGroup(id)
	return values.Success, "group updated successfully", nil
}

// MembershipHelper joins or leaves group id for the current user.
func (api *API) MembershipHelper(ctx context.Context, id model.GroupID, join bool) (string, string, error) {
	var err error
	message := "left group successfully"
	if join {
		err = api.Deps.Backend.JoinGroup(ctx, id)
		message = "joined group successfully"
	} else {
		err = api.Deps.Backend.LeaveGroup(ctx, id)
	}
	if err != nil {
		return backendStatus(err), err.Error(), err
	}

	api.invalidateGroup(id)
	return values.Success, message, nil
}

func (api *API) DeleteMemberHelper(ctx context.Context, id model.GroupID, userID string) (string, string, error) {
	if err := api.Deps.Backend.DeleteMember(ctx, id, userID); err != nil {
		return backendStatus(err), err.Error(), err
	}

	api.invalidateGroup(id)
	return values.Success, "member removed successfully", nil
}
