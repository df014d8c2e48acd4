// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package menu

import "context"

// Command is one menu entry.
type Command int

const (
	Main Command = iota
	Search
	List
	Export
	Operations
	RefreshCache
	Quit

	SearchWorkspacesOrGroups
	SearchEnvironments
	SearchUsers
	SearchSplits
	SearchSegments

	ListWorkspaces
	ListEnvironments
	ListGroups
	ListSegments
	ListSplits
	ListUsers

	ExportGroups
	ExportSegments
	ExportSplits
	ExportSplitDefinitions
	ExportUsers
	ExportWorkspaces
	ExportEnvironments
	ExportAll

	DeleteGroups
	DeleteSegments
	DeleteFeatureFlags
	DeleteEnvironments
	ExportSegmentKeys
	CopyFeatureFlagDefinitions
	CopySegmentKeys

	numCommands
)

var labels = [numCommands]string{
	Main:         "Main Menu",
	Search:       "Search",
	List:         "List",
	Export:       "Export",
	Operations:   "Operations",
	RefreshCache: "Update Cache",
	Quit:         "Quit",

	SearchWorkspacesOrGroups: "Search Workspaces Or Groups",
	SearchEnvironments:       "Search Environments",
	SearchUsers:              "Search Users",
	SearchSplits:             "Search Feature Flags",
	SearchSegments:           "Search Segments",

	ListWorkspaces:   "List Workspaces",
	ListEnvironments: "List Environments",
	ListGroups:       "List Groups",
	ListSegments:     "List Segments",
	ListSplits:       "List Feature Flags",
	ListUsers:        "List Users",

	ExportGroups:           "Export Groups",
	ExportSegments:         "Export Segments",
	ExportSplits:           "Export Feature Flags",
	ExportSplitDefinitions: "Export Feature Flag Definitions",
	ExportUsers:            "Export Users",
	ExportWorkspaces:       "Export Workspaces",
	ExportEnvironments:     "Export Environments",
	ExportAll:              "Export All",

	DeleteGroups:       "Delete Groups",
	DeleteSegments:     "Delete Segments",
	DeleteFeatureFlags: "Delete Feature Flags",
	DeleteEnvironments: "Delete Environments",
	ExportSegmentKeys:  "Export Segment Keys",

	CopyFeatureFlagDefinitions: "Copy Feature Flag Definitions",
	CopySegmentKeys:            "Copy Segment Keys",
}

func (c Command) String() string {
	if c < 0 || c >= numCommands {
		return "Unknown"
	}
	return labels[c]
}

// menus maps each submenu to its entries. Every submenu ends with a way
// back to Main and a way out.
var menus = map[Command][]Command{
	Main: {Search, List, Export, Operations, RefreshCache, Quit},
	Search: {
		SearchWorkspacesOrGroups, SearchEnvironments, SearchUsers, SearchSplits, SearchSegments,
		Main, Quit,
	},
	List: {
		ListWorkspaces, ListEnvironments, ListGroups, ListSegments, ListSplits, ListUsers,
		Main, Quit,
	},
	Export: {
		ExportGroups, ExportSegments, ExportSplits, ExportSplitDefinitions, ExportUsers,
		ExportWorkspaces, ExportEnvironments, ExportAll,
		Main, Quit,
	},
	Operations: {
		DeleteGroups, DeleteSegments, DeleteFeatureFlags, DeleteEnvironments, ExportSegmentKeys,
		CopyFeatureFlagDefinitions, CopySegmentKeys,
		Main, Quit,
	},
}

type handler func(m *Menu, ctx context.Context) error

var handlers = map[Command]handler{
	RefreshCache: (*Menu).refreshCache,

	SearchWorkspacesOrGroups: (*Menu).searchWorkspacesOrGroups,
	SearchEnvironments:       (*Menu).searchEnvironments,
	SearchUsers:              (*Menu).searchUsers,
	SearchSplits:             (*Menu).searchSplits,
	SearchSegments:           (*Menu).searchSegments,

	ListWorkspaces:   listKind("workspaces"),
	ListEnvironments: listKind("environments"),
	ListGroups:       listKind("groups"),
	ListSegments:     listKind("segments"),
	ListSplits:       listKind("splits"),
	ListUsers:        listKind("users"),

	ExportGroups:           exportKind("groups"),
	ExportSegments:         exportKind("segments"),
	ExportSplits:           exportKind("splits"),
	ExportSplitDefinitions: exportKind("split_definitions"),
	ExportUsers:            exportKind("users"),
	ExportWorkspaces:       exportKind("workspaces"),
	ExportEnvironments:     exportKind("environments"),
	ExportAll:              (*Menu).exportAll,

	DeleteGroups:       (*Menu).deleteGroups,
	DeleteSegments:     (*Menu).deleteSegments,
	DeleteFeatureFlags: (*Menu).deleteFeatureFlags,
	DeleteEnvironments: (*Menu).deleteEnvironments,
	ExportSegmentKeys:  (*Menu).exportSegmentKeys,

	CopyFeatureFlagDefinitions: (*Menu).copyFeatureFlagDefinitions,
	CopySegmentKeys:            (*Menu).copySegmentKeys,
}
