// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package catalog

import "github.com/staranto/splitctl/internal/split"

// NamedRef is an {id, name} pair.
type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type WorkspaceInfo struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	RequiresTitleAndComments bool   `json:"requiresTitleAndComments"`
}

// EnvironmentInfo is an environment together with the workspace it lives in.
type EnvironmentInfo struct {
	ID                    string                       `json:"id"`
	Name                  string                       `json:"name"`
	WorkspaceID           string                       `json:"workspaceId"`
	WorkspaceName         string                       `json:"workspaceName"`
	Production            bool                         `json:"production"`
	CreationTime          int64                        `json:"creationTime,omitempty"`
	Type                  string                       `json:"type,omitempty"`
	OrgID                 string                       `json:"orgId,omitempty"`
	Status                string                       `json:"status,omitempty"`
	DataExportPermissions *split.DataExportPermissions `json:"dataExportPermissions,omitempty"`
	ChangePermissions     *split.ChangePermissions     `json:"changePermissions,omitempty"`
}

// SegmentInfo is a segment in one environment. Keys is only filled for
// segment definitions.
type SegmentInfo struct {
	Name         string   `json:"name"`
	Environment  NamedRef `json:"environment"`
	Workspace    NamedRef `json:"workspace"`
	TrafficType  NamedRef `json:"trafficType"`
	CreationTime int64    `json:"creationTime"`
	Keys         []string `json:"keys,omitempty"`
}

// SplitInfo is a feature flag as defined in one workspace.
type SplitInfo struct {
	ID                     string      `json:"id"`
	Name                   string      `json:"name"`
	Description            string      `json:"description"`
	WorkspaceID            string      `json:"workspaceId"`
	WorkspaceName          string      `json:"workspaceName"`
	TrafficTypeID          string      `json:"trafficTypeId"`
	TrafficTypeName        string      `json:"trafficTypeName"`
	CreationTime           int64       `json:"creationTime"`
	RolloutStatusID        string      `json:"rolloutStatusId"`
	RolloutStatusName      string      `json:"rolloutStatusName"`
	RolloutStatusTimestamp int64       `json:"rolloutStatusTimestamp"`
	Tags                   []split.Tag `json:"tags"`
	Owners                 []split.Ref `json:"owners"`
}

// DefinitionInfo is a feature flag definition in one environment, tagged with
// its workspace.
type DefinitionInfo struct {
	split.SplitDefinition
	WorkspaceID   string `json:"workspaceId"`
	WorkspaceName string `json:"workspaceName"`
}

type GroupInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GroupRef is a user's membership in a group, with the group name resolved.
type GroupRef struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name"`
}

type UserInfo struct {
	ID     string     `json:"id"`
	Type   string     `json:"type,omitempty"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Status string     `json:"status"`
	Groups []GroupRef `json:"groups"`
}

// GroupMembers lists the users of one group by name.
type GroupMembers struct {
	ID    string   `json:"id"`
	Group string   `json:"group"`
	Users []string `json:"users"`
}
