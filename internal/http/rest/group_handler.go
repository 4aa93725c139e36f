package rest

import (
	"net/http"
	"strconv"

	"github.com/bwise1/bookgroups/internal/model"
	"github.com/bwise1/bookgroups/util"
	"github.com/bwise1/bookgroups/util/tracing"
	"github.com/bwise1/bookgroups/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) GroupRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.FindGroupsHandler))

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireLogin)

		r.Method(http.MethodPost, "/", Handler(api.CreateGroupHandler))
		r.Method(http.MethodGet, "/user-group", Handler(api.UserGroupsHandler))
		r.Method(http.MethodGet, "/user-group/{userID}", Handler(api.UserGroupsHandler))
		r.Method(http.MethodGet, "/{groupID}", Handler(api.GetGroupHandler))
		r.Method(http.MethodPatch, "/{groupID}", Handler(api.UpdateGroupHandler))
		r.Method(http.MethodPost, "/{groupID}/join", Handler(api.JoinGroupHandler))
		r.Method(http.MethodPost, "/{groupID}/leave", Handler(api.LeaveGroupHandler))
		r.Method(http.MethodDelete, "/{groupID}/members/{userID}", Handler(api.DeleteMemberHandler))
	})

	return mux
}

func (api *API) FindGroupsHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return respondWithError(err, "page must be a positive number", values.BadRequestBody, &tc)
		}
		page = n
	}

	groups, err := api.Deps.Backend.FindGroups(r.Context(), page)
	if err != nil {
		return respondWithBackendError(err, &tc)
	}
	return &ServerResponse{
		Message:    "groups returned successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       groups,
	}
}

func (api *API) CreateGroupHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	var req model.GroupForm
	if err := util.DecodeJSONBody(&tc, r.Body, &req); err != nil {
		return respondWithError(err, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, err.Error(), values.Unprocessable, &tc)
	}

	id, status, message, err := api.CreateGroupHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       map[string]model.GroupID{"group_id": id},
	}
}

func (api *API) GetGroupHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	id, err := model.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		return respondWithError(err, "invalid group id", values.BadRequestBody, &tc)
	}

	group, err := api.GroupDetail(r.Context(), id)
	if err != nil {
		return respondWithBackendError(err, &tc)
	}
	return &ServerResponse{
		Message:    "group returned successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       group,
	}
}

func (api *API) UpdateGroupHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	id, err := model.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		return respondWithError(err, "invalid group id", values.BadRequestBody, &tc)
	}

	var patch model.GroupPatch
	if err := util.DecodeJSONBody(&tc, r.Body, &patch); err != nil {
		return respondWithError(err, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(patch); err != nil {
		return respondWithError(err, err.Error(), values.Unprocessable, &tc)
	}

	status, message, err := api.UpdateGroupHelper(r.Context(), id, patch)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return &ServerResponse{Message: message, Status: status, StatusCode: util.StatusCode(status)}
}

func (api *API) JoinGroupHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return api.membershipHandler(r, true)
}

func (api *API) LeaveGroupHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	return api.membershipHandler(r, false)
}

func (api *API) membershipHandler(r *http.Request, join bool) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	id, err := model.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		return respondWithError(err, "invalid group id", values.BadRequestBody, &tc)
	}

	status, message, err := api.MembershipHelper(r.Context(), id, join)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return &ServerResponse{Message: message, Status: status, StatusCode: util.StatusCode(status)}
}

func (api *API) UserGroupsHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	groups, err := api.Deps.Backend.UserGroups(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		return respondWithBackendError(err, &tc)
	}
	return &ServerResponse{
		Message:    "groups returned successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       groups,
	}
}

func (api *API) DeleteMemberHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	id, err := model.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		return respondWithError(err, "invalid group id", values.BadRequestBody, &tc)
	}
	userID := chi.URLParam(r, "userID")
	if !util.NotBlank(userID) {
		return respondWithError(nil, "user id is required", values.BadRequestBody, &tc)
	}

	status, message, err := api.DeleteMemberHelper(r.Context(), id, userID)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return &ServerResponse{Message: message, Status: status, StatusCode: util.StatusCode(status)}
}
