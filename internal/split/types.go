// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package split

// Ref is the {id, type, name} stub the API embeds wherever one resource
// points at another.
type Ref struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

type Workspace struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Type                     string `json:"type,omitempty"`
	RequiresTitleAndComments bool   `json:"requiresTitleAndComments"`
}

type DataExportPermissions struct {
	AreExportersRestricted bool  `json:"areExportersRestricted"`
	Exporters              []Ref `json:"exporters"`
}

type ChangePermissions struct {
	AreApproversRestricted bool  `json:"areApproversRestricted"`
	AllowKills             bool  `json:"allowKills"`
	AreEditorsRestricted   bool  `json:"areEditorsRestricted"`
	AreApprovalsRequired   bool  `json:"areApprovalsRequired"`
	Approvers              []Ref `json:"approvers"`
	Editors                []Ref `json:"editors"`
}

type Environment struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	Production            bool                   `json:"production"`
	CreationTime          int64                  `json:"creationTime,omitempty"`
	Type                  string                 `json:"type,omitempty"`
	OrgID                 string                 `json:"orgId,omitempty"`
	Status                string                 `json:"status,omitempty"`
	DataExportPermissions *DataExportPermissions `json:"dataExportPermissions,omitempty"`
	ChangePermissions     *ChangePermissions     `json:"changePermissions,omitempty"`
}

type TrafficType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Segment is a segment as listed within one environment.
type Segment struct {
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Environment  Ref         `json:"environment"`
	TrafficType  TrafficType `json:"trafficType"`
	CreationTime int64       `json:"creationTime"`
}

type segmentKeysPage struct {
	Keys []struct {
		Key string `json:"key"`
	} `json:"keys"`
	Count  *int `json:"count"`
	Offset int  `json:"offset"`
	Limit  int  `json:"limit"`
}

type RolloutStatus struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Tag struct {
	Name string `json:"name"`
}

// Split is a feature flag as defined at workspace level.
type Split struct {
	ID                     string        `json:"id"`
	Name                   string        `json:"name"`
	Description            string        `json:"description"`
	TrafficType            TrafficType   `json:"trafficType"`
	CreationTime           int64         `json:"creationTime"`
	RolloutStatus          RolloutStatus `json:"rolloutStatus"`
	RolloutStatusTimestamp int64         `json:"rolloutStatusTimestamp"`
	Tags                   []Tag         `json:"tags"`
	Owners                 []Ref         `json:"owners"`
}

type Treatment struct {
	Name           string   `json:"name"`
	Configurations string   `json:"configurations,omitempty"`
	Description    string   `json:"description,omitempty"`
	Keys           []string `json:"keys,omitempty"`
	Segments       []string `json:"segments,omitempty"`
}

type Between struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

type Depends struct {
	SplitName  string   `json:"splitName"`
	Treatments []string `json:"treatments"`
}

// Matcher is one targeting condition. Only the field matching Type is set.
type Matcher struct {
	Negate    bool     `json:"negate,omitempty"`
	Type      string   `json:"type"`
	Attribute string   `json:"attribute,omitempty"`
	String    string   `json:"string,omitempty"`
	Bool      *bool    `json:"bool,omitempty"`
	Strings   []string `json:"strings,omitempty"`
	Number    *float64 `json:"number,omitempty"`
	Date      *int64   `json:"date,omitempty"`
	Between   *Between `json:"between,omitempty"`
	Depends   *Depends `json:"depends,omitempty"`
}

type Condition struct {
	Combiner string    `json:"combiner"`
	Matchers []Matcher `json:"matchers"`
}

type Bucket struct {
	Treatment string `json:"treatment"`
	Size      int    `json:"size"`
}

type Rule struct {
	Condition Condition `json:"condition"`
	Buckets   []Bucket  `json:"buckets"`
}

// SplitDefinition is a feature flag's targeting in one environment.
type SplitDefinition struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Environment       Ref         `json:"environment"`
	TrafficType       TrafficType `json:"trafficType"`
	Killed            bool        `json:"killed"`
	Treatments        []Treatment `json:"treatments"`
	DefaultTreatment  string      `json:"defaultTreatment"`
	BaselineTreatment string      `json:"baselineTreatment,omitempty"`
	TrafficAllocation int         `json:"trafficAllocation"`
	Rules             []Rule      `json:"rules"`
	DefaultRule       []Bucket    `json:"defaultRule"`
	CreationTime      int64       `json:"creationTime"`
	LastUpdateTime    int64       `json:"lastUpdateTime"`
}

type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

type User struct {
	ID     string `json:"id"`
	Type   string `json:"type,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
	Groups []Ref  `json:"groups"`
}
