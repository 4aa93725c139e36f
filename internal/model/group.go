package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type MeetingType string

const (
	MeetingOnline  MeetingType = "online"
	MeetingOffline MeetingType = "offline"
)

// GroupID is a reading-group identifier. The upstream API sends it as a
// number in group payloads and as a string from the create endpoint.
type GroupID int64

func (id GroupID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id *GroupID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid group id %q: %w", b, err)
	}
	*id = GroupID(n)
	return nil
}

// ParseGroupID parses a route parameter into a GroupID.
func ParseGroupID(s string) (GroupID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid group id %q", s)
	}
	return GroupID(n), nil
}

type Group struct {
	ID                GroupID     `json:"group_id"`
	Name              string      `json:"name"`
	RecruitmentStatus bool        `json:"recruitment_status"`
	MeetingType       MeetingType `json:"meeting_type"`
	Day               string      `json:"day"`
	Time              string      `json:"time"`
	Region            string      `json:"region"`
	Description       string      `json:"description"`
	ParticipantLimit  int         `json:"participant_limit"`
	OpenChatLink      string      `json:"open_chat_link"`
	GroupLead         string      `json:"group_lead"`
	IsGroupLead       bool        `json:"is_group_lead"`
	IsParticipant     bool        `json:"is_participant"`
	Members           []Member    `json:"userGroup"`
}

// Leader returns the member summary of the group lead, if it is listed.
func (g Group) Leader() (Member, bool) {
	for _, m := range g.Members {
		if m.UserID != "" && m.UserID == g.GroupLead {
			return m, true
		}
	}
	return Member{}, false
}

// IsFull reports whether the member list has reached the participant limit.
// A zero limit means the group is uncapped.
func (g Group) IsFull() bool {
	return g.ParticipantLimit > 0 && len(g.Members) >= g.ParticipantLimit
}

// CanJoin reports whether the current viewer may join the group.
func (g Group) CanJoin() bool {
	return g.RecruitmentStatus && !g.IsParticipant && !g.IsGroupLead && !g.IsFull()
}

type Member struct {
	UserID   string    `json:"user_id,omitempty"`
	Nickname string    `json:"nickname"`
	PhotoID  string    `json:"photoId,omitempty"`
	PhotoURL string    `json:"photoUrl,omitempty"`
	UserInfo string    `json:"userInfo,omitempty"`
	Gender   string    `json:"gender,omitempty"`
	Age      string    `json:"age,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Groups   []GroupID `json:"groups"`
}

// GroupForm is the create-group payload collected from the recruit form.
type GroupForm struct {
	Name             string      `json:"name" validate:"required"`
	MeetingType      MeetingType `json:"meeting_type" validate:"required,oneof=online offline"`
	Day              string      `json:"day" validate:"required"`
	Time             string      `json:"time" validate:"required,clock"`
	Region           string      `json:"region" validate:"required_if=MeetingType offline"`
	Description      string      `json:"description" validate:"required"`
	ParticipantLimit int         `json:"participant_limit" validate:"required,min=1"`
	OpenChatLink     string      `json:"open_chat_link" validate:"required,url"`
}

// GroupPatch carries a partial update; nil fields are left untouched upstream.
type GroupPatch struct {
	Name              *string      `json:"name,omitempty"`
	RecruitmentStatus *bool        `json:"recruitment_status,omitempty"`
	MeetingType       *MeetingType `json:"meeting_type,omitempty" validate:"omitempty,oneof=online offline"`
	Day               *string      `json:"day,omitempty"`
	Time              *string      `json:"time,omitempty" validate:"omitempty,clock"`
	Region            *string      `json:"region,omitempty"`
	Description       *string      `json:"description,omitempty"`
	ParticipantLimit  *int         `json:"participant_limit,omitempty" validate:"omitempty,min=1"`
	OpenChatLink      *string      `json:"open_chat_link,omitempty" validate:"omitempty,url"`
}

// IsEmpty reports whether the patch would change nothing.
func (p GroupPatch) IsEmpty() bool {
	return p == GroupPatch{}
}
