// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package menu implements the interactive numbered menus of splitctl menu.
// Each entry is a Command, and every Command is either a submenu or has a
// handler in a static table.
package menu
